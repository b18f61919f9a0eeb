package updatelog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/modelbazaar/controlplane/pkg/mlmodel"
)

const maxConsecutiveFailures = 5

// logFileKinds are the update endpoints that append to per-kind
// subdirectories under the deployment dir, per spec.md §4.E.3.
var logFileKinds = []Kind{KindInsert, KindDelete, KindUpvote, KindAssociate, KindImplicitUpvote}

type tailState struct {
	Offsets map[string]int64 `json:"offsets"`
}

// Replayer is the single-writer replay loop: it tails every replica's
// update-log files under a deployment directory, applies each record to
// the model, and atomically snapshots after each batch.
type Replayer struct {
	deploymentDir string
	model         mlmodel.Model
	logger        *slog.Logger

	state     tailState
	failures  map[string]int
	statePath string
}

// NewReplayer creates a Replayer rooted at deploymentDir, loading any
// previously persisted file offsets so a restart never double-applies a
// record.
func NewReplayer(deploymentDir string, model mlmodel.Model, logger *slog.Logger) (*Replayer, error) {
	r := &Replayer{
		deploymentDir: deploymentDir,
		model:         model,
		logger:        logger,
		statePath:     filepath.Join(deploymentDir, "WRITER.offsets.json"),
		failures:      make(map[string]int),
	}
	if err := r.loadState(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Replayer) loadState() error {
	b, err := os.ReadFile(r.statePath)
	if os.IsNotExist(err) {
		r.state = tailState{Offsets: make(map[string]int64)}
		return nil
	}
	if err != nil {
		return fmt.Errorf("updatelog: reading offset state: %w", err)
	}
	if err := json.Unmarshal(b, &r.state); err != nil {
		return fmt.Errorf("updatelog: decoding offset state: %w", err)
	}
	if r.state.Offsets == nil {
		r.state.Offsets = make(map[string]int64)
	}
	return nil
}

func (r *Replayer) saveState() error {
	b, err := json.Marshal(r.state)
	if err != nil {
		return fmt.Errorf("updatelog: encoding offset state: %w", err)
	}
	tmp, err := os.CreateTemp(r.deploymentDir, ".offsets-*.tmp")
	if err != nil {
		return fmt.Errorf("updatelog: creating temp offset file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("updatelog: writing offset state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.statePath)
}

type logFile struct {
	path    string
	modTime time.Time
}

// discoverFiles lists every .jsonl file under the kind subdirectories,
// ordered by mtime then path, matching spec.md §4.F's replay order.
func (r *Replayer) discoverFiles() ([]logFile, error) {
	var files []logFile
	for _, kind := range logFileKinds {
		dir := filepath.Join(r.deploymentDir, string(kind))
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("updatelog: reading %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			files = append(files, logFile{path: filepath.Join(dir, e.Name()), modTime: info.ModTime()})
		}
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path < files[j].path
		}
		return files[i].modTime.Before(files[j].modTime)
	})
	return files, nil
}

// RunOnce tails every log file once, applying new records, then saves a
// snapshot if anything was applied. It is safe to call repeatedly (e.g. on
// a ticker); a file with no new bytes since the last call is a no-op.
func (r *Replayer) RunOnce(ctx context.Context, artifactPath string) error {
	files, err := r.discoverFiles()
	if err != nil {
		return err
	}

	var applied int
	for _, lf := range files {
		n, err := r.tailFile(ctx, lf.path)
		if err != nil {
			r.logger.Error("tailing update log file", "error", err, "file", lf.path)
			continue
		}
		applied += n
	}

	if applied == 0 {
		return nil
	}
	if err := r.model.Save(ctx, artifactPath); err != nil {
		return fmt.Errorf("updatelog: saving model snapshot: %w", err)
	}
	if err := r.saveState(); err != nil {
		return err
	}
	r.rotateFullyConsumedFiles(files)
	return nil
}

// rotateFullyConsumedFiles deletes log files whose every byte has been
// applied and durably saved, per spec.md §4.E.6: a replica's log remains
// readable after it terminates, and is only removed once the writer has
// applied and saved everything in it.
func (r *Replayer) rotateFullyConsumedFiles(files []logFile) {
	for _, lf := range files {
		info, err := os.Stat(lf.path)
		if err != nil {
			continue
		}
		if r.state.Offsets[lf.path] < info.Size() {
			continue
		}
		if err := os.Remove(lf.path); err != nil {
			r.logger.Warn("failed to rotate fully-applied update log file", "error", err, "file", lf.path)
			continue
		}
		delete(r.state.Offsets, lf.path)
	}
}

func (r *Replayer) tailFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	offset := r.state.Offsets[path]
	if _, err := f.Seek(offset, 0); err != nil {
		return 0, fmt.Errorf("seeking %s: %w", path, err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var applied int
	for scanner.Scan() {
		line := scanner.Bytes()
		lineLen := int64(len(line)) + 1 // + newline

		if err := r.applyLine(ctx, path, line); err != nil {
			r.failures[path]++
			if r.failures[path] >= maxConsecutiveFailures {
				if err := r.poison(path, line); err != nil {
					r.logger.Error("writing poison record", "error", err, "file", path)
				}
				r.logger.Warn("moved record to poison file after repeated failures", "file", path)
				r.failures[path] = 0
			} else {
				r.logger.Warn("failed to apply update-log record, will retry", "error", err, "file", path, "attempt", r.failures[path])
				break
			}
		} else {
			r.failures[path] = 0
			applied++
		}
		offset += lineLen
		r.state.Offsets[path] = offset
	}
	if err := scanner.Err(); err != nil {
		return applied, fmt.Errorf("scanning %s: %w", path, err)
	}
	return applied, nil
}

func (r *Replayer) poison(path string, line []byte) error {
	f, err := os.OpenFile(path+".poison", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

func (r *Replayer) applyLine(ctx context.Context, path string, line []byte) error {
	rec, err := Decode(line)
	if err != nil {
		return err
	}
	switch rec.Kind {
	case KindUpvote:
		return r.model.Upvote(ctx, rec.Upvote.ChunkIDs, rec.Upvote.Queries)
	case KindImplicitUpvote:
		return r.model.Upvote(ctx, rec.ImplicitUpvote.ChunkIDs, rec.ImplicitUpvote.Queries)
	case KindAssociate:
		return r.model.Associate(ctx, rec.Associate.Sources, rec.Associate.Targets)
	case KindInsert:
		files := make([]mlmodel.FileInfo, len(rec.Insert.Files))
		for i, f := range rec.Insert.Files {
			files[i] = mlmodel.FileInfo{Path: f.Path, SourceType: f.SourceType, ContentType: f.ContentType}
		}
		return r.model.Insert(ctx, files)
	case KindDelete:
		return r.model.Delete(ctx, rec.Delete.DocIDs)
	default:
		return fmt.Errorf("updatelog: unhandled record kind %q", rec.Kind)
	}
}
