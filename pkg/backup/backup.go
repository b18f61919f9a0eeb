// Package backup implements the snapshot/backup service: archiving a
// deployed model's artifact directory plus a metadata DB dump, uploading
// the result through pkg/cloudstorage, and enforcing a retention limit on
// the destination.
package backup

import (
	"time"
)

// DefaultRetentionLimit is how many archives are kept per model before the
// oldest are deleted.
const DefaultRetentionLimit = 5

// DefaultDumpTimeout bounds how long pg_dump is allowed to run.
const DefaultDumpTimeout = 10 * time.Minute

// Config holds the filesystem roots and destination template a Service
// needs; DestinationURI may point at a local path or any
// pkg/cloudstorage-registered scheme.
type Config struct {
	ModelBazaarDir string
	DestinationURI string // e.g. "s3://my-backups/modelbazaar" or "/var/backups/modelbazaar"
	DatabaseURL    string
	RetentionLimit int
}
