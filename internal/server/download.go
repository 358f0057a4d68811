package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"
)

// signedURLTTL is how long a download redirect stays valid.
const signedURLTTL = 10 * time.Minute

// downloadHandler handles GET /file/{uid}: look up the record, ask the blob
// store for a presigned URL valid for signedURLTTL, and redirect. File
// bytes never flow through this process.
//
// A request racing the sweeper sees either a valid redirect or a 404; the
// record is read exactly once and the presign call does not consult it
// again, so no partial state is observable.
func (cfg Config) downloadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.PathValue("uid")

		rec, err := cfg.Meta.Get(r.Context(), uid)
		if err != nil {
			if !errors.Is(err, ErrRecordNotFound) {
				rid := RequestIDFromContext(r.Context())
				log.Printf("rid=%s msg=download_get uid=%s err=%v", rid, uid, err)
			}
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		signed, err := cfg.Blobs.PresignedGet(ctx, objectKey(rec.ID, rec.Filename), signedURLTTL)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=presign uid=%s err=%v", rid, uid, err)
			http.Error(w, "Download failed", http.StatusNotFound)
			return
		}

		downloadsTotal.Inc()
		http.Redirect(w, r, signed.String(), http.StatusFound)
	})
}
