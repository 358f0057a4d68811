package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config carries everything a handler needs. It is built once in main from
// the environment and passed by value; handlers never reach into globals.
type Config struct {
	Addr  string // e.g. ":8080"
	Owner string // label echoed in every JSON response

	// PublicDir, when non-empty, is served at / for the dashboard frontend.
	PublicDir string

	// MaxUploadBytes caps request bodies on /upload. 0 means no limit.
	MaxUploadBytes int64

	// RetentionDays is echoed in upload manifests as expires_in_days.
	// The sweeper holds its own copy of the window (see SweepConfig).
	RetentionDays int

	Meta  MetadataStore
	Blobs BlobStore
}

type Server struct {
	httpServer *http.Server
}

func New(cfg Config) *Server {
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           cfg.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

// Handler exposes the routing table without binding a listener, for tests
// and for embedding behind an outer server.
func (cfg Config) Handler() http.Handler {
	return cfg.routes()
}

// routes builds the full handler chain. Split out from New so tests can
// exercise the routing table without binding a listener.
func (cfg Config) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /upload", cfg.uploadHandler())
	mux.Handle("GET /api/{uid}", cfg.metadataHandler())
	mux.Handle("GET /file/{uid}", cfg.downloadHandler())
	mux.Handle("GET /dashboard-data", cfg.dashboardHandler())

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
		})
	})
	mux.Handle("GET /ready", cfg.readyHandler())

	if cfg.PublicDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.PublicDir)))
	}

	// Wrap middleware: requestID -> logging -> mux
	var handler http.Handler = mux
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return handler
}

// readyHandler reports whether the metadata store answers. The blob store
// bucket is verified once at startup and not re-probed here.
func (cfg Config) readyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := cfg.Meta.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
		})
	})
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// errorResp is the JSON error body shared by every endpoint that reports
// errors as JSON: {"error": ..., "owner": ..., "site": ...}.
type errorResp struct {
	Error string `json:"error"`
	Owner string `json:"owner"`
	Site  string `json:"site"`
}

func writeJSONError(w http.ResponseWriter, status int, msg, owner, site string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResp{Error: msg, Owner: owner, Site: site})
}

// siteURL reconstructs the externally visible base URL of this deployment
// from the request, honoring X-Forwarded-Proto when running behind a proxy.
func siteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		scheme = xf
	}
	return scheme + "://" + r.Host
}
