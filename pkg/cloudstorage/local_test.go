package cloudstorage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalProvider_UploadDownloadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.txt")

	p := NewLocalProvider()
	if err := p.UploadFile(context.Background(), path, bytes.NewReader([]byte("hello"))); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	var buf bytes.Buffer
	if err := p.DownloadFile(context.Background(), path, &buf); err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	if buf.String() != "hello" {
		t.Errorf("downloaded content = %q, want %q", buf.String(), "hello")
	}
}

func TestLocalProvider_ListFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewLocalProvider()
	files, err := p.ListFiles(context.Background(), dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("ListFiles returned %d files, want 2", len(files))
	}
}

func TestRegistry_DispatchesByScheme(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()
	r.Register(NewLocalProvider())

	path := filepath.Join(dir, "a.txt")
	if err := r.UploadFile(context.Background(), path, bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	var buf bytes.Buffer
	if err := r.DownloadFile(context.Background(), path, &buf); err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	if buf.String() != "x" {
		t.Errorf("content = %q, want x", buf.String())
	}
}

func TestLocalProvider_DeleteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewLocalProvider()
	if err := p.DeleteFile(context.Background(), path); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed, stat err = %v", path, err)
	}

	// deleting an already-missing file is not an error.
	if err := p.DeleteFile(context.Background(), path); err != nil {
		t.Errorf("DeleteFile on missing file: %v, want nil", err)
	}
}

func TestRegistry_DeleteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	r.Register(NewLocalProvider())
	if err := r.DeleteFile(context.Background(), path); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
}

func TestRegistry_UnknownScheme(t *testing.T) {
	r := NewRegistry()
	_, err := r.ListFiles(context.Background(), "s3://bucket/prefix")
	if err == nil {
		t.Fatal("ListFiles with unregistered scheme: want error, got nil")
	}
}
