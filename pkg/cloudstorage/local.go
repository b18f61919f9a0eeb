package cloudstorage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// LocalProvider reads and writes plain filesystem paths, used for on-prem
// deployments with no object storage configured and for tests.
type LocalProvider struct{}

// NewLocalProvider creates a LocalProvider.
func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

func (p *LocalProvider) Scheme() string { return "local" }

func pathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("cloudstorage: parsing local URI %q: %w", uri, err)
	}
	if u.Scheme == "" {
		return uri, nil
	}
	return filepath.Join(u.Host, u.Path), nil
}

func (p *LocalProvider) DownloadFile(ctx context.Context, uri string, w io.Writer) error {
	path, err := pathFromURI(uri)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cloudstorage: opening %s: %w", path, err)
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func (p *LocalProvider) UploadFile(ctx context.Context, uri string, r io.Reader) error {
	path, err := pathFromURI(uri)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cloudstorage: creating parent dir for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*.tmp")
	if err != nil {
		return fmt.Errorf("cloudstorage: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("cloudstorage: writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (p *LocalProvider) DeleteFile(ctx context.Context, uri string) error {
	path, err := pathFromURI(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cloudstorage: deleting %s: %w", path, err)
	}
	return nil
}

func (p *LocalProvider) ListFiles(ctx context.Context, uri string) ([]string, error) {
	dir, err := pathFromURI(uri)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cloudstorage: listing %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
