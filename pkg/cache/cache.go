// Package cache implements the semantic LLM-response cache: a fingerprint
// (query text) to cached answer index, scoped per model, with
// similarity-threshold recall and per-model invalidation.
package cache

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one cached query/response pair, scoped by model.
type Entry struct {
	ModelID     uuid.UUID `json:"model_id"`
	QueryText   string    `json:"query_text"`
	QueryID     uuid.UUID `json:"query_id"`
	LLMResponse string    `json:"llm_response"`
	InsertedAt  time.Time `json:"inserted_at"`
}

// defaultThreshold is the token-overlap similarity cutoff: Query returns a
// match only when the best score is strictly above it. Overridable via
// LLM_CACHE_THRESHOLD.
const defaultThreshold = 0.95

// defaultCandidates is how many nearest neighbors Query/Suggestions pull
// from the index before reranking.
const defaultCandidates = 5
