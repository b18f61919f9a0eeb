package integration

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestCreateIntegration_Validation(t *testing.T) {
	h := NewHandler(nil, nil)
	router := chi.NewRouter()
	router.Mount("/integrations", h.Routes())

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing type", `{"name":"prod-openai","data":{}}`, http.StatusUnprocessableEntity},
		{"invalid type", `{"type":"telephony","name":"x","data":{}}`, http.StatusUnprocessableEntity},
		{"missing name", `{"type":"openai","data":{}}`, http.StatusUnprocessableEntity},
		{"missing data", `{"type":"openai","name":"x"}`, http.StatusUnprocessableEntity},
		{"invalid json", `not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/integrations/", bytes.NewBufferString(tc.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestDeleteIntegration_InvalidID(t *testing.T) {
	h := NewHandler(nil, nil)
	router := chi.NewRouter()
	router.Mount("/integrations", h.Routes())

	r := httptest.NewRequest(http.MethodDelete, "/integrations/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
