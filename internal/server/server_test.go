package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gatekeep/authserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		ServerPort: 0,
		Database:   config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "auth.db")},
		Session:    config.SessionConfig{Secret: "server-test-secret-0123456789abcdef", CookieName: "user_id"},
		Security:   config.SecurityConfig{BcryptCost: 4},
		Events:     config.EventsConfig{Backend: config.EventsNone},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_ServesRoutes(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_RejectsShortSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Secret = "short"

	_, err := New(context.Background(), cfg, discardLogger())
	require.Error(t, err)
}

func TestNew_FailsWhenDatabaseUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "missing", "dir", "auth.db")

	_, err := New(context.Background(), cfg, discardLogger())
	require.Error(t, err)
}

func TestNew_UnsupportedEventsBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.Backend = "carrier-pigeon"

	_, err := New(context.Background(), cfg, discardLogger())
	require.Error(t, err)
}
