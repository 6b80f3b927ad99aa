package clinic

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/clinic"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(clinic.NewMemoryStore(clinic.Seed()), clinic.DefaultProfile()).RegisterRoutes(r)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestListServices(t *testing.T) {
	resp := get(setupRouter(), "/services")
	require.Equal(t, http.StatusOK, resp.Code)

	var services []clinic.Service
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &services))
	assert.Equal(t, clinic.Seed(), services)
}

func TestGetService(t *testing.T) {
	r := setupRouter()

	resp := get(r, "/services/cardiology")
	require.Equal(t, http.StatusOK, resp.Code)
	var svc clinic.Service
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &svc))
	assert.Equal(t, "cardiology", svc.ID)

	assert.Equal(t, http.StatusNotFound, get(r, "/services/astrology").Code)
}

func TestProfile(t *testing.T) {
	resp := get(setupRouter(), "/clinic")
	require.Equal(t, http.StatusOK, resp.Code)

	var profile clinic.Profile
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &profile))
	assert.Equal(t, clinic.DefaultProfile(), profile)
}
