package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_InMemoryMode(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", strings.Repeat("a", 32))
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", strings.Repeat("r", 32))
	t.Setenv("VIDTUBE_DATABASE_URL", "")
	t.Setenv("VIDTUBE_LOCAL_MEDIA_DIR", t.TempDir())

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	a, err := New(LoadConfig(), log)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if a.dbEnabled {
		t.Fatalf("db must be disabled without a database url")
	}
	if a.auth == nil || a.metrics == nil {
		t.Fatalf("app not fully wired")
	}
	if a.mediaDir == "" {
		t.Fatalf("local uploader must be active without S3 config")
	}
}

func TestNew_FailsWithoutTokenSecrets(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", "")
	t.Setenv("VIDTUBE_DATABASE_URL", "")
	t.Setenv("VIDTUBE_LOCAL_MEDIA_DIR", t.TempDir())

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if _, err := New(LoadConfig(), log); err == nil {
		t.Fatalf("expected startup failure without token secrets")
	}
}

func TestRegisterHTTP_HealthAndReadiness(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))

	mux := http.NewServeMux()
	registerHTTP(mux, log, Config{}, nil, false, NewMetrics(), nil, "")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz without db requirement: %d", rec.Code)
	}

	// Readiness gate trips when DB is required but absent.
	mux = http.NewServeMux()
	registerHTTP(mux, log, Config{ReadinessRequireDB: true}, nil, false, NewMetrics(), nil, "")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with required db: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
}
