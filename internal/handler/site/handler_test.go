package site

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/clinic"
	"github.com/zhouzirui/healthcare-site/backend/internal/site"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	s, err := site.New(clinic.DefaultProfile(), clinic.NewMemoryStore(clinic.Seed()))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(s).RegisterRoutes(r)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestPagesServeHTML(t *testing.T) {
	r := setupRouter(t)

	for _, path := range []string{"/", "/about", "/services", "/contact", "/appointments"} {
		resp := get(r, path)
		assert.Equal(t, http.StatusOK, resp.Code, path)
		assert.Equal(t, "text/html; charset=utf-8", resp.Header().Get("Content-Type"), path)
		assert.Contains(t, resp.Body.String(), "<!DOCTYPE html>", path)
	}
}

func TestUnknownPageServes404Page(t *testing.T) {
	resp := get(setupRouter(t), "/billing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "Page Not Found")
}

func TestUnknownAPIPathServesJSON(t *testing.T) {
	resp := get(setupRouter(t), "/api/nothing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"not found"}`, resp.Body.String())
}

func TestAssets(t *testing.T) {
	r := setupRouter(t)

	resp := get(r, "/assets/widget.js")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "EventSource")

	resp = get(r, "/assets/style.css")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/css")
}
