package updatelog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Appender writes one replica's update records to its own per-kind log
// file, flushed before returning so a successful HTTP response guarantees
// the record is durable even if the process crashes immediately after.
type Appender struct {
	deploymentDir string
	replicaID     string

	mu    sync.Mutex
	files map[Kind]*os.File
}

// NewAppender creates an Appender for one replica of one deployment.
func NewAppender(deploymentDir, replicaID string) *Appender {
	return &Appender{deploymentDir: deploymentDir, replicaID: replicaID, files: make(map[Kind]*os.File)}
}

// Append writes rec as one JSON line to {deployment_dir}/{kind}/{replica_id}.jsonl.
func (a *Appender) Append(rec Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := a.fileFor(rec.Kind)
	if err != nil {
		return err
	}
	b, err := rec.MarshalJSON()
	if err != nil {
		return fmt.Errorf("updatelog: encoding record: %w", err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("updatelog: writing record: %w", err)
	}
	return f.Sync()
}

func (a *Appender) fileFor(kind Kind) (*os.File, error) {
	if f, ok := a.files[kind]; ok {
		return f, nil
	}
	dir := filepath.Join(a.deploymentDir, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("updatelog: creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, a.replicaID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("updatelog: opening %s: %w", path, err)
	}
	a.files[kind] = f
	return f, nil
}

// Close releases every open file handle.
func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var firstErr error
	for _, f := range a.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
