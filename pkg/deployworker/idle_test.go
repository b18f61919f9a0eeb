package deployworker

import (
	"context"
	"testing"
	"time"

	"github.com/modelbazaar/controlplane/pkg/updatelog"
)

func TestRunIdleTimerLoop_FiresAfterTimeout(t *testing.T) {
	dir := t.TempDir()
	appender := updatelog.NewAppender(dir, "replica-1")
	defer appender.Close()

	w := NewWorker(&stubModel{}, nil, appender, testLogger())
	// backdate activity so the loop sees it as already idle.
	w.lastActivity.Store(time.Now().Add(-time.Hour).Unix())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fired := make(chan struct{}, 1)
	RunIdleTimerLoop(ctx, w, 10*time.Millisecond, testLogger(), func(ctx context.Context) error {
		fired <- struct{}{}
		return nil
	})

	select {
	case <-fired:
	default:
		t.Fatal("onIdle was never called before the loop returned")
	}
}

func TestRunIdleTimerLoop_DoesNotFireWhileActive(t *testing.T) {
	dir := t.TempDir()
	appender := updatelog.NewAppender(dir, "replica-1")
	defer appender.Close()

	w := NewWorker(&stubModel{}, nil, appender, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	called := false
	RunIdleTimerLoop(ctx, w, time.Hour, testLogger(), func(ctx context.Context) error {
		called = true
		return nil
	})

	if called {
		t.Error("onIdle was called while worker was still active")
	}
}
