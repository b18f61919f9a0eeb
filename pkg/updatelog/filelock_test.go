package updatelog

import (
	"path/filepath"
	"testing"
)

func TestTryAcquireFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WRITER.lock")

	l1, err := tryAcquireFileLock(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if l1 == nil {
		t.Fatal("first acquire: got nil lock, want held lock")
	}

	l2, err := tryAcquireFileLock(path)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if l2 != nil {
		t.Fatal("second acquire on already-locked file: want (nil, nil), got a held lock")
	}

	if err := l1.release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	l3, err := tryAcquireFileLock(path)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if l3 == nil {
		t.Fatal("acquire after release: got nil, want held lock")
	}
	l3.release()
}

func TestElectWriter(t *testing.T) {
	dir := t.TempDir()

	w1, err := ElectWriter(dir)
	if err != nil {
		t.Fatalf("first ElectWriter: %v", err)
	}
	if w1 == nil {
		t.Fatal("first ElectWriter: want a writer lock, got nil")
	}

	w2, err := ElectWriter(dir)
	if err != nil {
		t.Fatalf("second ElectWriter: %v", err)
	}
	if w2 != nil {
		t.Fatal("second ElectWriter while first holds the lock: want nil, got a lock")
	}

	if err := w1.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	w3, err := ElectWriter(dir)
	if err != nil {
		t.Fatalf("ElectWriter after release: %v", err)
	}
	if w3 == nil {
		t.Fatal("ElectWriter after release: want a writer lock, got nil")
	}
	w3.Release()
}
