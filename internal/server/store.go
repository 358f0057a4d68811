package server

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// FileRecord is one row of files_meta: the durable metadata for a single
// shared file. All fields are immutable after creation; created_at is
// assigned by the database at insert time.
type FileRecord struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Mimetype  string    `json:"mimetype"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrRecordNotFound is returned by Get when no record matches the id.
var ErrRecordNotFound = errors.New("file record not found")

// MetadataStore is the durable id -> FileRecord mapping. The production
// implementation is Postgres; tests substitute an in-memory fake.
type MetadataStore interface {
	// Insert adds a new record. created_at is set by the store.
	Insert(ctx context.Context, id, filename, mimetype string) error

	// Get returns the record for id, or ErrRecordNotFound.
	Get(ctx context.Context, id string) (FileRecord, error)

	// ListAll returns every record ordered by created_at descending.
	ListAll(ctx context.Context) ([]FileRecord, error)

	// Delete removes the record for id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// PostgresStore implements MetadataStore on the files_meta table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, id, filename, mimetype string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files_meta (id, filename, mimetype) VALUES ($1, $2, $3)`,
		id, filename, mimetype,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (FileRecord, error) {
	var rec FileRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, mimetype, created_at FROM files_meta WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.Filename, &rec.Mimetype, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FileRecord{}, ErrRecordNotFound
		}
		return FileRecord{}, err
	}
	return rec, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, mimetype, created_at
		 FROM files_meta
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []FileRecord{}
	for rows.Next() {
		var rec FileRecord
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.Mimetype, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM files_meta WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
