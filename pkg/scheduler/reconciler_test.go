package scheduler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestTransition_AdvanceOnRunning(t *testing.T) {
	next, forced := transition(StatusStarting, &Job{Status: "running"}, false)
	if next != StatusInProgress || forced {
		t.Errorf("got (%q, %v), want (%q, false)", next, forced, StatusInProgress)
	}
}

func TestTransition_AdvanceOnComplete(t *testing.T) {
	next, forced := transition(StatusInProgress, &Job{Status: "complete"}, false)
	if next != StatusComplete || forced {
		t.Errorf("got (%q, %v), want (%q, false)", next, forced, StatusComplete)
	}
}

func TestTransition_CompleteDropsToStoppedWhenJobGone(t *testing.T) {
	next, forced := transition(StatusComplete, nil, true)
	if next != StatusStopped || !forced {
		t.Errorf("got (%q, %v), want (%q, true)", next, forced, StatusStopped)
	}
}

func TestTransition_StartingForcedFailedWhenJobGone(t *testing.T) {
	next, forced := transition(StatusStarting, nil, true)
	if next != StatusFailed || !forced {
		t.Errorf("got (%q, %v), want (%q, true)", next, forced, StatusFailed)
	}
}

func TestTransition_TerminalStatusesNeverRegress(t *testing.T) {
	for _, s := range []string{StatusComplete, StatusFailed, StatusStopped} {
		next, _ := transition(s, &Job{Status: "dead"}, false)
		if s == StatusComplete {
			if next != StatusStopped {
				t.Errorf("complete should demote to stopped on dead job, got %q", next)
			}
			continue
		}
		if next != s {
			t.Errorf("transition(%q, dead) = %q, want unchanged", s, next)
		}
	}
}

func TestTransition_NotStartedUnaffectedByUnrelatedJobStatus(t *testing.T) {
	next, forced := transition(StatusNotStarted, &Job{Status: "pending"}, false)
	if next != StatusNotStarted || forced {
		t.Errorf("got (%q, %v), want (%q, false)", next, forced, StatusNotStarted)
	}
}

type fakeStore struct {
	jobs      []ModelJob
	applied   []string
	listErr   error
	applyErrs map[string]error
}

func (f *fakeStore) ListNonTerminal(ctx context.Context) ([]ModelJob, error) {
	return f.jobs, f.listErr
}

func (f *fakeStore) ApplyTransition(ctx context.Context, modelID uuid.UUID, kind, newStatus string) error {
	f.applied = append(f.applied, newStatus)
	if f.applyErrs != nil {
		return f.applyErrs[modelID.String()]
	}
	return nil
}

func TestReconciler_TickAppliesTransition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Job{ID: "job-1", Status: "running"})
	}))
	defer srv.Close()

	modelID := uuid.New()
	store := &fakeStore{jobs: []ModelJob{{ModelID: modelID, JobID: "job-1", Kind: "train", Status: StatusStarting}}}
	client := NewClient(srv.URL, "tok")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewReconciler(client, store, logger, nil, nil)

	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.applied) != 1 || store.applied[0] != StatusInProgress {
		t.Errorf("applied = %v, want [%q]", store.applied, StatusInProgress)
	}
}

func TestReconciler_TickSkipsUnchangedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Job{ID: "job-1", Status: "pending"})
	}))
	defer srv.Close()

	store := &fakeStore{jobs: []ModelJob{{ModelID: uuid.New(), JobID: "job-1", Kind: "train", Status: StatusNotStarted}}}
	client := NewClient(srv.URL, "tok")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewReconciler(client, store, logger, nil, nil)

	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.applied) != 0 {
		t.Errorf("applied = %v, want none", store.applied)
	}
}

type fakeNotifier struct {
	calls []string
}

func (f *fakeNotifier) NotifyForcedDemotion(ctx context.Context, modelID uuid.UUID, kind, from, to string) error {
	f.calls = append(f.calls, kind+":"+from+"->"+to)
	return nil
}

func TestReconciler_TickNotifiesOnForcedDemotion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := &fakeStore{jobs: []ModelJob{{ModelID: uuid.New(), JobID: "job-1", Kind: "train", Status: StatusStarting}}}
	client := NewClient(srv.URL, "tok")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &fakeNotifier{}
	r := NewReconciler(client, store, logger, nil, notifier)

	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != "train:starting->failed" {
		t.Errorf("notifier calls = %v, want [train:starting->failed]", notifier.calls)
	}
}

func TestReconciler_TickSkipsNotifierWhenNotForced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Job{ID: "job-1", Status: "running"})
	}))
	defer srv.Close()

	store := &fakeStore{jobs: []ModelJob{{ModelID: uuid.New(), JobID: "job-1", Kind: "train", Status: StatusStarting}}}
	client := NewClient(srv.URL, "tok")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &fakeNotifier{}
	r := NewReconciler(client, store, logger, nil, notifier)

	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(notifier.calls) != 0 {
		t.Errorf("notifier calls = %v, want none", notifier.calls)
	}
}
