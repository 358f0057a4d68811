package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// metadataResp is the record plus the computed download URL and the
// standard owner/site envelope.
type metadataResp struct {
	FileRecord
	DownloadURL string `json:"download_url"`
	Owner       string `json:"owner"`
	Site        string `json:"site"`
}

// metadataHandler handles GET /api/{uid}: a single record lookup with no
// side effects. Any lookup failure surfaces as the 404 shape, matching the
// public contract of the endpoint.
func (cfg Config) metadataHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.PathValue("uid")
		site := siteURL(r)

		rec, err := cfg.Meta.Get(r.Context(), uid)
		if err != nil {
			if !errors.Is(err, ErrRecordNotFound) {
				rid := RequestIDFromContext(r.Context())
				log.Printf("rid=%s msg=meta_get uid=%s err=%v", rid, uid, err)
			}
			writeJSONError(w, http.StatusNotFound, "File not found", cfg.Owner, site)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(metadataResp{
			FileRecord:  rec,
			DownloadURL: site + "/file/" + rec.ID,
			Owner:       cfg.Owner,
			Site:        site,
		})
	})
}
