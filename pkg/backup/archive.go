package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// buildArchive tars+gzips {model_bazaar_dir}/models/{id} plus a pg_dump of
// the metadata DB into one archive at destPath.
func buildArchive(ctx context.Context, cfg Config, modelID uuid.UUID, destPath string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("backup: creating archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	modelDir := filepath.Join(cfg.ModelBazaarDir, "models", modelID.String())
	if err := addDirToTar(tw, modelDir, "model"); err != nil {
		return fmt.Errorf("backup: archiving model directory: %w", err)
	}

	dumpCtx, cancel := context.WithTimeout(ctx, DefaultDumpTimeout)
	defer cancel()
	dump, err := dumpDatabase(dumpCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("backup: dumping database: %w", err)
	}
	if err := addBytesToTar(tw, "metadata.sql", dump); err != nil {
		return fmt.Errorf("backup: archiving database dump: %w", err)
	}

	return nil
}

func addDirToTar(tw *tar.Writer, root, prefix string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.Join(prefix, rel)
		if info.IsDir() {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}

func addBytesToTar(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{Name: name, Size: int64(len(data)), Mode: 0o644}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

// extractArchive unpacks a backup archive produced by buildArchive into
// destDir, preserving the "model/" and "metadata.sql" top-level entries.
func extractArchive(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("backup: opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("backup: reading gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("backup: reading tar entry: %w", err)
		}
		target := filepath.Join(destDir, hdr.Name)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("backup: creating %s: %w", filepath.Dir(target), err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
		if err != nil {
			return fmt.Errorf("backup: creating %s: %w", target, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("backup: writing %s: %w", target, err)
		}
		out.Close()
	}
}

// dumpDatabase is a package variable so tests can substitute a fake dump
// without invoking the real pg_dump binary.
var dumpDatabase = pgDump

// pgDump invokes pg_dump against databaseURL and returns the plain-text
// dump. There is no library in this module's dependency tree that wraps
// pg_dump, so this is the one piece of the backup pipeline that shells out.
func pgDump(ctx context.Context, databaseURL string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump", "--no-owner", "--no-privileges", databaseURL)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("pg_dump failed: %s", exitErr.Stderr)
		}
		return nil, err
	}
	return out, nil
}
