package cloudstorage

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// Registry dispatches by URI scheme to the right Provider, the same
// register/get shape pkg/messaging uses for chat platforms.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, keyed by its scheme.
func (r *Registry) Register(p Provider) {
	r.providers[p.Scheme()] = p
}

func (r *Registry) resolve(uri string) (Provider, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("cloudstorage: parsing URI %q: %w", uri, err)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "local"
	}
	p, ok := r.providers[scheme]
	if !ok {
		return nil, fmt.Errorf("cloudstorage: no provider registered for scheme %q", scheme)
	}
	return p, nil
}

// DownloadFile resolves uri's scheme and delegates.
func (r *Registry) DownloadFile(ctx context.Context, uri string, w io.Writer) error {
	p, err := r.resolve(uri)
	if err != nil {
		return err
	}
	return p.DownloadFile(ctx, uri, w)
}

// UploadFile resolves uri's scheme and delegates.
func (r *Registry) UploadFile(ctx context.Context, uri string, r2 io.Reader) error {
	p, err := r.resolve(uri)
	if err != nil {
		return err
	}
	return p.UploadFile(ctx, uri, r2)
}

// ListFiles resolves uri's scheme and delegates.
func (r *Registry) ListFiles(ctx context.Context, uri string) ([]string, error) {
	p, err := r.resolve(uri)
	if err != nil {
		return nil, err
	}
	return p.ListFiles(ctx, uri)
}

// DeleteFile resolves uri's scheme and delegates, if that provider
// implements Deleter.
func (r *Registry) DeleteFile(ctx context.Context, uri string) error {
	p, err := r.resolve(uri)
	if err != nil {
		return err
	}
	d, ok := p.(Deleter)
	if !ok {
		return fmt.Errorf("cloudstorage: provider %q does not support deletion", p.Scheme())
	}
	return d.DeleteFile(ctx, uri)
}
