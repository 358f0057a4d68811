package server

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"
)

// fakeMetaStore is an in-memory MetadataStore for handler and sweeper tests.
type fakeMetaStore struct {
	mu      sync.Mutex
	records map[string]FileRecord

	insertErr error
	getErr    error
	listErr   error
	deleteErr error
	pingErr   error

	insertCalls int
	deleteCalls int
}

func newFakeMetaStore() *fakeMetaStore {
	return &fakeMetaStore{records: make(map[string]FileRecord)}
}

// put seeds a record directly, bypassing Insert's created_at assignment.
func (f *fakeMetaStore) put(rec FileRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = rec
}

func (f *fakeMetaStore) Insert(ctx context.Context, id, filename, mimetype string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return f.insertErr
	}
	f.records[id] = FileRecord{
		ID:        id,
		Filename:  filename,
		Mimetype:  mimetype,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (f *fakeMetaStore) Get(ctx context.Context, id string) (FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return FileRecord{}, f.getErr
	}
	rec, ok := f.records[id]
	if !ok {
		return FileRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeMetaStore) ListAll(ctx context.Context) ([]FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]FileRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeMetaStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, id)
	return nil
}

func (f *fakeMetaStore) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeMetaStore) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok
}

// fakeBlobStore is an in-memory BlobStore.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr     error
	removeErr  error
	presignErr error

	putCalls     int
	removeCalls  int
	presignCalls int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	if f.putErr != nil {
		return f.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	f.objects[key] = buf.Bytes()
	return nil
}

func (f *fakeBlobStore) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobStore) PresignedGet(ctx context.Context, key string, expiry time.Duration) (*url.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presignCalls++
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	// Mirrors the shape of a real presigned URL; existence is not checked,
	// just like a real presign call.
	return url.Parse("https://blobs.example/" + key + "?X-Amz-Signature=test")
}

func (f *fakeBlobStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeBlobStore) object(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}
