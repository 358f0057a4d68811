package server

import (
	"encoding/json"
	"log"
	"net/http"
)

type dashboardResp struct {
	Files []FileRecord `json:"files"`
	Owner string       `json:"owner"`
	Site  string       `json:"site"`
}

// dashboardHandler handles GET /dashboard-data: every record, newest first.
// The result set is unbounded; pagination is an accepted scaling limit of
// the dashboard.
func (cfg Config) dashboardHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site := siteURL(r)

		files, err := cfg.Meta.ListAll(r.Context())
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=dashboard_list err=%v", rid, err)
			writeJSONError(w, http.StatusInternalServerError, "Could not load dashboard", cfg.Owner, site)
			return
		}
		if files == nil {
			files = []FileRecord{}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(dashboardResp{
			Files: files,
			Owner: cfg.Owner,
			Site:  site,
		})
	})
}
