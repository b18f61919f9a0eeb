package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestCacheRoutes_InvalidModelID(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	router := chi.NewRouter()
	router.Mount("/cache", h.Routes())

	targets := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/cache/insert?model_id=not-a-uuid&query=x&llm_res=y"},
		{http.MethodGet, "/cache/query?model_id=not-a-uuid&query=x"},
		{http.MethodGet, "/cache/suggestions?model_id=not-a-uuid&query=x"},
		{http.MethodPost, "/cache/invalidate?model_id=not-a-uuid"},
		{http.MethodGet, "/cache/token?model_id=not-a-uuid"},
	}
	for _, tc := range targets {
		t.Run(tc.path, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestCacheInsert_MissingParams(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	router := chi.NewRouter()
	router.Mount("/cache", h.Routes())

	r := httptest.NewRequest(http.MethodPost, "/cache/insert?model_id="+validModelID(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func validModelID() string {
	return "00000000-0000-0000-0000-000000000001"
}
