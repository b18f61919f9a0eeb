package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/pkg/cloudstorage"
)

// Service implements pkg/bazaar.Backupper: archive, upload, enforce
// retention.
type Service struct {
	cfg     Config
	storage *cloudstorage.Registry
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewService wires a backup Service.
func NewService(cfg Config, storage *cloudstorage.Registry, logger *slog.Logger) *Service {
	if cfg.RetentionLimit <= 0 {
		cfg.RetentionLimit = DefaultRetentionLimit
	}
	return &Service{cfg: cfg, storage: storage, logger: logger, nowFunc: time.Now}
}

// Backup archives modelID's artifact directory plus a metadata dump,
// uploads it, prunes old archives beyond the retention limit, and returns
// the uploaded archive's URI. It satisfies pkg/bazaar.Backupper.
func (s *Service) Backup(ctx context.Context, modelID uuid.UUID) (string, error) {
	tmp, err := os.CreateTemp("", "backup-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("backup: creating temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := buildArchive(ctx, s.cfg, modelID, tmpPath); err != nil {
		return "", err
	}

	prefix := strings.TrimSuffix(s.cfg.DestinationURI, "/") + "/" + modelID.String()
	destURI := fmt.Sprintf("%s/%s.tar.gz", prefix, s.nowFunc().UTC().Format("20060102T150405Z"))

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", fmt.Errorf("backup: reopening archive: %w", err)
	}
	defer f.Close()

	if err := s.storage.UploadFile(ctx, destURI, f); err != nil {
		return "", fmt.Errorf("backup: uploading archive: %w", err)
	}

	if err := s.enforceRetention(ctx, prefix); err != nil {
		s.logger.Warn("backup retention cleanup failed", "error", err, "model_id", modelID)
	}

	return destURI, nil
}

// Restore downloads the archive at archiveURI and extracts it to
// destDir, restoring the archive's model/ directory and leaving metadata.sql
// alongside for the caller (bazaarctl restore) to apply with psql.
func (s *Service) Restore(ctx context.Context, archiveURI, destDir string) error {
	tmp, err := os.CreateTemp("", "restore-*.tar.gz")
	if err != nil {
		return fmt.Errorf("backup: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := s.storage.DownloadFile(ctx, archiveURI, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("backup: downloading archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return extractArchive(tmpPath, destDir)
}

func (s *Service) enforceRetention(ctx context.Context, prefix string) error {
	files, err := s.storage.ListFiles(ctx, prefix)
	if err != nil {
		return err
	}
	if len(files) <= s.cfg.RetentionLimit {
		return nil
	}
	sort.Strings(files) // timestamp-prefixed names sort chronologically
	toDelete := files[:len(files)-s.cfg.RetentionLimit]
	for _, uri := range toDelete {
		if err := s.storage.DeleteFile(ctx, uri); err != nil {
			s.logger.Warn("failed to delete old backup archive", "error", err, "uri", uri)
		}
	}
	return nil
}
