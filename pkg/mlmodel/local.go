package mlmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// LocalModel is a bag-of-documents reference implementation of Model: each
// document scores the share of query tokens it contains as case-insensitive
// substrings, over an in-memory document set persisted as a single JSON file. It exists for local development and tests; production
// deployments load a real retrieval/classification kernel in its place.
type LocalModel struct {
	mu   sync.RWMutex
	docs map[string]string
}

// NewLocalModel creates an empty LocalModel.
func NewLocalModel() *LocalModel {
	return &LocalModel{docs: make(map[string]string)}
}

type localModelSnapshot struct {
	Docs map[string]string `json:"docs"`
}

func (m *LocalModel) Train(ctx context.Context, dataRefs []string, hyperparameters map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ref := range dataRefs {
		m.docs[fmt.Sprintf("train-%d", i)] = ref
	}
	return nil
}

func (m *LocalModel) Predict(ctx context.Context, req PredictRequest) (*PredictResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryTokens := strings.Fields(strings.ToLower(req.Query))
	type scored struct {
		id    string
		text  string
		score float64
	}
	var candidates []scored
	for id, text := range m.docs {
		textLower := strings.ToLower(text)
		var hits int
		for _, t := range queryTokens {
			if strings.Contains(textLower, t) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		candidates = append(candidates, scored{id: id, text: text, score: float64(hits) / float64(len(queryTokens))})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	topK := req.TopK
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}
	refs := make([]Reference, 0, topK)
	for _, c := range candidates[:topK] {
		refs = append(refs, Reference{DocID: c.id, Text: c.text, Score: c.score})
	}
	return &PredictResult{References: refs}, nil
}

func (m *LocalModel) Insert(ctx context.Context, files []FileInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return fmt.Errorf("mlmodel: reading %s: %w", f.Path, err)
		}
		m.docs[f.Path] = string(data)
	}
	return nil
}

func (m *LocalModel) Delete(ctx context.Context, docIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range docIDs {
		delete(m.docs, id)
	}
	return nil
}

func (m *LocalModel) Upvote(ctx context.Context, chunkIDs []string, queries []string) error {
	return nil
}

func (m *LocalModel) Associate(ctx context.Context, sources []string, targets []string) error {
	return nil
}

func (m *LocalModel) Save(ctx context.Context, artifactPath string) error {
	m.mu.RLock()
	snap := localModelSnapshot{Docs: make(map[string]string, len(m.docs))}
	for k, v := range m.docs {
		snap.Docs[k] = v
	}
	m.mu.RUnlock()

	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("mlmodel: encoding snapshot: %w", err)
	}

	dir := filepath.Dir(artifactPath)
	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("mlmodel: creating temp snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("mlmodel: writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("mlmodel: closing temp snapshot file: %w", err)
	}
	return os.Rename(tmp.Name(), artifactPath)
}

func (m *LocalModel) Load(ctx context.Context, artifactPath string) error {
	b, err := os.ReadFile(artifactPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mlmodel: reading snapshot: %w", err)
	}
	var snap localModelSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("mlmodel: decoding snapshot: %w", err)
	}
	m.mu.Lock()
	m.docs = snap.Docs
	if m.docs == nil {
		m.docs = make(map[string]string)
	}
	m.mu.Unlock()
	return nil
}
