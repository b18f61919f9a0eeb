package deployworker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeResolver struct {
	url string
}

func (f *fakeResolver) ResolveDeploymentURL(ctx context.Context, modelID uuid.UUID) (string, error) {
	return f.url, nil
}

type fakeTokenIssuer struct{}

func (fakeTokenIssuer) IssueJobToken(modelID, deploymentID uuid.UUID, ttl time.Duration) (string, error) {
	return "job-token", nil
}

func TestClient_Save(t *testing.T) {
	var gotAuth string
	var gotBody saveRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(&fakeResolver{url: server.URL}, fakeTokenIssuer{})
	modelID := uuid.New()
	if err := c.Save(context.Background(), modelID, "derived-model"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if gotAuth != "Bearer job-token" {
		t.Errorf("Authorization = %q, want Bearer job-token", gotAuth)
	}
	if gotBody.ModelName != "derived-model" {
		t.Errorf("ModelName = %q, want derived-model", gotBody.ModelName)
	}
}

func TestClient_Save_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(&fakeResolver{url: server.URL}, fakeTokenIssuer{})
	if err := c.Save(context.Background(), uuid.New(), ""); err == nil {
		t.Fatal("Save against failing worker: want error, got nil")
	}
}
