package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// uploadManifest is the JSON response for a successful upload.
type uploadManifest struct {
	UID           string `json:"uid"`
	DownloadURL   string `json:"download_url"`
	APIURL        string `json:"api_url"`
	ExpiresInDays int    `json:"expires_in_days"`
	Owner         string `json:"owner"`
	Site          string `json:"site"`
}

// uploadHandler handles POST /upload: exactly one multipart file in field
// "file"; zero or more than one fails the request before any storage call.
// The payload is spooled to a local temp file (removed on every exit path),
// written to the blob store at {id}/{filename}, and then recorded in the
// metadata store. Blob write strictly precedes the metadata insert so a
// record never references a missing blob; if the insert fails, the
// just-written blob is removed again.
func (cfg Config) uploadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site := siteURL(r)
		rid := RequestIDFromContext(r.Context())

		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		}

		mr, err := r.MultipartReader()
		if err != nil {
			uploadErrorsTotal.Inc()
			writeJSONError(w, http.StatusBadRequest, "No file uploaded", cfg.Owner, site)
			return
		}

		part, err := nextFilePart(mr)
		if err != nil {
			uploadErrorsTotal.Inc()
			writeJSONError(w, http.StatusBadRequest, "No file uploaded", cfg.Owner, site)
			return
		}
		defer func() { _ = part.Close() }()

		filename := part.FileName()
		if filename == "" {
			uploadErrorsTotal.Inc()
			writeJSONError(w, http.StatusBadRequest, "No file uploaded", cfg.Owner, site)
			return
		}
		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		// Spool to disk first so the blob write knows the exact size and a
		// slow storage backend never holds the client's connection half-read.
		tmp, err := os.CreateTemp("", "relay-upload-*")
		if err != nil {
			uploadErrorsTotal.Inc()
			log.Printf("rid=%s msg=temp_create err=%v", rid, err)
			writeJSONError(w, http.StatusInternalServerError, "could not buffer upload", cfg.Owner, site)
			return
		}
		defer func() {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}()

		size, err := io.Copy(tmp, part)
		if err != nil {
			uploadErrorsTotal.Inc()
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "file too large", cfg.Owner, site)
				return
			}
			log.Printf("rid=%s msg=temp_spool err=%v", rid, err)
			writeJSONError(w, http.StatusInternalServerError, "could not buffer upload", cfg.Owner, site)
			return
		}
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			uploadErrorsTotal.Inc()
			writeJSONError(w, http.StatusInternalServerError, "could not buffer upload", cfg.Owner, site)
			return
		}

		// Spooling consumed the first part, so the reader can advance: a
		// second "file" field fails the request before any storage call.
		if extra, scanErr := nextFilePart(mr); scanErr == nil {
			_ = extra.Close()
			uploadErrorsTotal.Inc()
			writeJSONError(w, http.StatusBadRequest, "Expected exactly one file", cfg.Owner, site)
			return
		} else if !errors.Is(scanErr, errNoFilePart) {
			uploadErrorsTotal.Inc()
			writeJSONError(w, http.StatusBadRequest, "Malformed upload", cfg.Owner, site)
			return
		}

		uid, err := newFileID()
		if err != nil {
			uploadErrorsTotal.Inc()
			writeJSONError(w, http.StatusInternalServerError, "could not generate id", cfg.Owner, site)
			return
		}
		key := objectKey(uid, filename)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()

		if err := cfg.Blobs.Put(ctx, key, tmp, size, contentType); err != nil {
			uploadErrorsTotal.Inc()
			log.Printf("rid=%s msg=blob_put uid=%s err=%v", rid, uid, err)
			writeJSONError(w, http.StatusInternalServerError, err.Error(), cfg.Owner, site)
			return
		}

		if err := cfg.Meta.Insert(ctx, uid, filename, contentType); err != nil {
			uploadErrorsTotal.Inc()
			log.Printf("rid=%s msg=meta_insert uid=%s err=%v", rid, uid, err)
			// Compensate so the failed upload leaves no orphaned blob behind.
			if rerr := cfg.Blobs.Remove(ctx, key); rerr != nil {
				log.Printf("rid=%s msg=orphan_blob uid=%s key=%s err=%v", rid, uid, key, rerr)
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error(), cfg.Owner, site)
			return
		}

		uploadsTotal.Inc()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(uploadManifest{
			UID:           uid,
			DownloadURL:   site + "/file/" + uid,
			APIURL:        site + "/api/" + uid,
			ExpiresInDays: cfg.RetentionDays,
			Owner:         cfg.Owner,
			Site:          site,
		})
	})
}

var errNoFilePart = errors.New("missing file part")

// nextFilePart advances the reader to the next "file" field, skipping other
// form fields, and returns errNoFilePart when the body holds no more.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoFilePart
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		_ = part.Close()
	}
}
