// Package cloudstorage defines the provider-agnostic interface backup and
// dataset ingestion use to move files to and from object storage: local
// disk, S3, Azure Blob, or GCS, selected by URI scheme.
package cloudstorage

import (
	"context"
	"io"
)

// Provider is the interface every storage backend implements.
type Provider interface {
	// Scheme returns the URI scheme this provider handles ("local", "s3",
	// "azure", "gcs").
	Scheme() string

	// DownloadFile streams the object at uri to w.
	DownloadFile(ctx context.Context, uri string, w io.Writer) error

	// UploadFile streams r to the object at uri.
	UploadFile(ctx context.Context, uri string, r io.Reader) error

	// ListFiles lists object keys under the prefix uri.
	ListFiles(ctx context.Context, uri string) ([]string, error)
}

// Deleter is an optional capability beyond the download/upload/list set:
// providers that can remove an object implement it so callers like backup
// retention pruning can type-assert for it.
type Deleter interface {
	DeleteFile(ctx context.Context, uri string) error
}
