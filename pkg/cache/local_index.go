package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// LocalIndex is the default, always-available VectorIndex: an in-memory
// token-overlap index that persists to a single JSON-lines file, rewritten
// atomically (write-to-temp + rename) on Persist. Good enough for the
// exact/near-exact recall this cache targets; no external service required.
type LocalIndex struct {
	mu      sync.RWMutex
	path    string
	entries []Entry
	dirty   bool
}

// NewLocalIndex creates a LocalIndex backed by path, loading any entries
// already persisted there.
func NewLocalIndex(path string) (*LocalIndex, error) {
	idx := &LocalIndex{path: path}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *LocalIndex) load() error {
	f, err := os.Open(idx.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache: opening index file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return fmt.Errorf("cache: decoding index entry: %w", err)
		}
		idx.entries = append(idx.entries, e)
	}
	return scanner.Err()
}

// Insert implements VectorIndex.
func (idx *LocalIndex) Insert(ctx context.Context, e Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = append(idx.entries, e)
	idx.dirty = true
	return nil
}

// Search implements VectorIndex: a plain scan scoped by model_id that keeps
// the k entries with the highest token overlap against query (newest first
// among equal scores), since the in-process index has no
// approximate-nearest-neighbor structure. This is fine at the scale a single
// deployment's cache sees; the Milvus-backed index exists for workloads that
// outgrow it.
func (idx *LocalIndex) Search(ctx context.Context, modelID uuid.UUID, query string, k int) ([]Entry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var matches []Entry
	var scores []float64
	for i := len(idx.entries) - 1; i >= 0; i-- {
		e := idx.entries[i]
		if e.ModelID != modelID {
			continue
		}
		score, pos := tokenOverlap(query, e.QueryText), len(matches)
		for pos > 0 && scores[pos-1] < score {
			pos--
		}
		if pos < k {
			matches = append(matches[:pos], append([]Entry{e}, matches[pos:]...)...)
			scores = append(scores[:pos], append([]float64{score}, scores[pos:]...)...)
			if len(matches) > k {
				matches, scores = matches[:k], scores[:k]
			}
		}
	}
	return matches, nil
}

// Invalidate implements VectorIndex.
func (idx *LocalIndex) Invalidate(ctx context.Context, modelID uuid.UUID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.entries[:0]
	for _, e := range idx.entries {
		if e.ModelID != modelID {
			kept = append(kept, e)
		}
	}
	idx.entries = kept
	idx.dirty = true
	return nil
}

// Persist implements VectorIndex: writes the full entry set to a temp file
// and renames it over the index path, so a crash mid-write never corrupts
// the on-disk index.
func (idx *LocalIndex) Persist(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	dir := filepath.Dir(idx.path)
	tmp, err := os.CreateTemp(dir, ".cache-index-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: creating temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, e := range idx.entries {
		b, err := json.Marshal(e)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("cache: encoding index entry: %w", err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("cache: writing index entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: flushing index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: closing temp index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), idx.path); err != nil {
		return fmt.Errorf("cache: renaming index file into place: %w", err)
	}
	idx.dirty = false
	return nil
}
