package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestServer_RunAndConflict(t *testing.T) {
	l := newFakeLauncher("line one")
	reg := NewRegistry(l)
	h := NewRouter(context.Background(), reg)

	rec, body := post(t, h, `{"agent":"discover","args":["--dry-run"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "started", body["status"])
	assert.Equal(t, "discover", body["agent"])

	rec, body = post(t, h, `{"agent":"score"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "discover", body["agent"])

	close(l.release)
	waitDone(t, reg)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var st Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	assert.False(t, st.Running)
	assert.Equal(t, "discover", st.Agent)
	require.NotNil(t, st.ExitCode)
	assert.Equal(t, 0, *st.ExitCode)
	assert.Equal(t, []string{"line one"}, st.Output)
}

func TestServer_UnknownAgent(t *testing.T) {
	h := NewRouter(context.Background(), NewRegistry(newFakeLauncher()))
	rec, body := post(t, h, `{"agent":"shell"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown agent", body["error"])
}

func TestServer_BadBody(t *testing.T) {
	h := NewRouter(context.Background(), NewRegistry(newFakeLauncher()))
	rec, _ := post(t, h, `{"agent":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_DefaultAgentIsEnrich(t *testing.T) {
	l := newFakeLauncher()
	close(l.release)
	reg := NewRegistry(l)
	h := NewRouter(context.Background(), reg)

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	waitDone(t, reg)
	assert.Equal(t, []string{"enrich"}, l.calls)
}

func TestServer_StatusBeforeAnyRun(t *testing.T) {
	h := NewRouter(context.Background(), NewRegistry(newFakeLauncher()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.JSONEq(t, `{"running":false,"exit_code":null,"output":[]}`, rec.Body.String())
}

func TestServer_HealthAndCORS(t *testing.T) {
	h := NewRouter(context.Background(), NewRegistry(newFakeLauncher()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodOptions, "/run", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestServer_NotFound(t *testing.T) {
	h := NewRouter(context.Background(), NewRegistry(newFakeLauncher()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
