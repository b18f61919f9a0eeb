package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelbazaar/controlplane/pkg/license"
)

func TestSubmitJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/jobs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(Job{ID: "job-1", Status: "pending"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	id, err := c.SubmitJob(context.Background(), JobSpec{JobID: "job-1", CPUMhz: 500})
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	if id != "job-1" {
		t.Errorf("id = %q, want job-1", id)
	}
}

func TestDeleteJob_NotFoundIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	if err := c.DeleteJob(context.Background(), "missing"); err != nil {
		t.Errorf("DeleteJob on missing job should succeed, got %v", err)
	}
}

func TestGetJob_RetriesOn5xxThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Job{ID: "job-2", Status: "running"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	job, err := c.GetJob(context.Background(), "job-2")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != "running" {
		t.Errorf("status = %q, want running", job.Status)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestJobExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	exists, err := c.JobExists(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("JobExists: %v", err)
	}
	if exists {
		t.Error("expected exists = false")
	}
}

func TestRunningCPUMhz(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/allocations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Allocation{
			{ID: "a1", CPUMhz: 300, Running: true},
			{ID: "a2", CPUMhz: 200, Running: false},
			{ID: "a3", CPUMhz: 100, Running: true},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	total, err := c.RunningCPUMhz(context.Background())
	if err != nil {
		t.Fatalf("RunningCPUMhz: %v", err)
	}
	if total != 400 {
		t.Errorf("total = %d, want 400", total)
	}
}

func TestSubmitJobLicensed_ExceedsCapacity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Allocation{{ID: "a1", CPUMhz: 900, Running: true}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	lic := &license.License{CPUMhzLimit: 1000}
	_, err := c.SubmitJobLicensed(context.Background(), JobSpec{CPUMhz: 500}, lic)
	if err == nil {
		t.Fatal("expected license capacity error")
	}
}
