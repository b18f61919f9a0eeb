package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const invalidationKeyPrefix = "cache:invalidated:"

// Service implements the public semantic-cache operations of spec.md §4.G
// on top of a VectorIndex and Redis-tracked per-model invalidation
// timestamps, grounded on the teacher's alert.Deduplicator Redis-hot-path
// shape.
type Service struct {
	index     VectorIndex
	rdb       *redis.Client
	logger    *slog.Logger
	threshold float64
}

// NewService creates a cache Service. threshold <= 0 uses the spec default
// of 0.95.
func NewService(index VectorIndex, rdb *redis.Client, logger *slog.Logger, threshold float64) *Service {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Service{index: index, rdb: rdb, logger: logger, threshold: threshold}
}

func invalidationKey(modelID uuid.UUID) string {
	return invalidationKeyPrefix + modelID.String()
}

// invalidatedAt returns the logical timestamp of the most recent Invalidate
// call for modelID, or the zero time if none has happened.
func (s *Service) invalidatedAt(ctx context.Context, modelID uuid.UUID) (time.Time, error) {
	val, err := s.rdb.Get(ctx, invalidationKey(modelID)).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("cache: reading invalidation timestamp: %w", err)
	}
	return time.Unix(val, 0), nil
}

// Insert implements spec.md §4.G's Insert op. The entry is stamped with its
// arrival time and dropped only when that time is earlier than the model's
// recorded invalidation time (whole seconds). The request carries no
// timestamp of its own, so an insert issued before an Invalidate but
// arriving after it is kept.
func (s *Service) Insert(ctx context.Context, modelID uuid.UUID, query, llmResponse string) error {
	cutoff, err := s.invalidatedAt(ctx, modelID)
	if err != nil {
		return err
	}
	now := time.Now()
	if now.Before(cutoff) {
		s.logger.Warn("dropping stale cache insert", "model_id", modelID)
		return nil
	}

	entry := Entry{
		ModelID:     modelID,
		QueryText:   query,
		QueryID:     uuid.New(),
		LLMResponse: llmResponse,
		InsertedAt:  now,
	}
	if err := s.index.Insert(ctx, entry); err != nil {
		return fmt.Errorf("cache: inserting entry: %w", err)
	}
	return s.index.Persist(ctx)
}

// Query implements spec.md §4.G's Query op: top-5 candidates filtered by
// model_id, reranked by token-overlap similarity, gated by threshold.
func (s *Service) Query(ctx context.Context, modelID uuid.UUID, query string) (*Entry, error) {
	candidates, err := s.index.Search(ctx, modelID, query, defaultCandidates)
	if err != nil {
		return nil, fmt.Errorf("cache: searching index: %w", err)
	}

	var best *Entry
	var bestScore float64
	for i := range candidates {
		score := tokenOverlap(query, candidates[i].QueryText)
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}
	if best == nil || bestScore <= s.threshold {
		return nil, nil
	}
	return best, nil
}

// Suggestions implements spec.md §4.G's Suggestions op: up to 5 deduplicated
// candidate queries, no similarity gate.
func (s *Service) Suggestions(ctx context.Context, modelID uuid.UUID, query string) ([]string, error) {
	candidates, err := s.index.Search(ctx, modelID, query, defaultCandidates)
	if err != nil {
		return nil, fmt.Errorf("cache: searching index: %w", err)
	}

	seen := make(map[string]struct{}, len(candidates))
	var out []string
	for _, c := range candidates {
		if _, ok := seen[c.QueryText]; ok {
			continue
		}
		seen[c.QueryText] = struct{}{}
		out = append(out, c.QueryText)
		if len(out) == defaultCandidates {
			break
		}
	}
	return out, nil
}

// Invalidate implements spec.md §4.G's Invalidate op: drops every entry for
// modelID and records the invalidation time in Redis, which Insert compares
// against each new entry's arrival time.
func (s *Service) Invalidate(ctx context.Context, modelID uuid.UUID) error {
	if err := s.index.Invalidate(ctx, modelID); err != nil {
		return fmt.Errorf("cache: invalidating index: %w", err)
	}
	if err := s.index.Persist(ctx); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, invalidationKey(modelID), time.Now().Unix(), 0).Err(); err != nil {
		return fmt.Errorf("cache: recording invalidation timestamp: %w", err)
	}
	return nil
}
