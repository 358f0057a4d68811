package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// The happy path through the full routing table: an uploaded file's
// identifier is immediately usable on both the metadata and the download
// endpoints.
func TestRoutes_ReadAfterWrite(t *testing.T) {
	fm := newFakeMetaStore()
	fb := newFakeBlobStore()
	cfg := testConfig(fm, fb)

	ts := httptest.NewServer(cfg.routes())
	defer ts.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	body, contentType := multipartBody(t, "file", "hello.txt", "hello relay")
	resp, err := client.Post(ts.URL+"/upload", contentType, body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from upload, got %d", resp.StatusCode)
	}

	var manifest uploadManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}

	// Metadata endpoint.
	metaResp, err := client.Get(ts.URL + "/api/" + manifest.UID)
	if err != nil {
		t.Fatalf("metadata fetch: %v", err)
	}
	defer metaResp.Body.Close()
	if metaResp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /api/%s, got %d", manifest.UID, metaResp.StatusCode)
	}

	// Download endpoint redirects rather than proxying bytes.
	dlResp, err := client.Get(ts.URL + "/file/" + manifest.UID)
	if err != nil {
		t.Fatalf("download fetch: %v", err)
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusFound {
		t.Errorf("Expected 302 from /file/%s, got %d", manifest.UID, dlResp.StatusCode)
	}
	if dlResp.Header.Get("Location") == "" {
		t.Error("Expected Location header on redirect")
	}
}

// Well-formed but never-issued identifiers take the NotFound path on both
// retrieval endpoints.
func TestRoutes_UnknownIdentifier(t *testing.T) {
	cfg := testConfig(newFakeMetaStore(), newFakeBlobStore())

	ts := httptest.NewServer(cfg.routes())
	defer ts.Close()

	for _, path := range []string{"/api/AAAAbbbb", "/file/AAAAbbbb"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestRoutes_Health(t *testing.T) {
	cfg := testConfig(newFakeMetaStore(), newFakeBlobStore())

	ts := httptest.NewServer(cfg.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestRoutes_ReadyDegraded(t *testing.T) {
	fm := newFakeMetaStore()
	fm.pingErr = errors.New("db down")
	cfg := testConfig(fm, newFakeBlobStore())

	ts := httptest.NewServer(cfg.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}

func TestSiteURL(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{
			name:  "plain http",
			setup: func(r *http.Request) {},
			want:  "http://example.com",
		},
		{
			name: "behind tls-terminating proxy",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-Proto", "https")
			},
			want: "https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			if got := siteURL(r); got != tt.want {
				t.Errorf("siteURL = %q, want %q", got, tt.want)
			}
		})
	}
}
