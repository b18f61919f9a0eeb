// Package usage tracks per-model counters: request counts, bytes stored, and
// CPU-seconds consumed. Store offers an upsert-style increment for each
// counter, but no component of this module calls them; the HTTP surface only
// reads the counters.
package usage

import (
	"time"

	"github.com/google/uuid"
)

// Counters is one row of accumulated usage for a model.
type Counters struct {
	ModelID     uuid.UUID `json:"model_id"`
	Requests    int64     `json:"requests"`
	BytesStored int64     `json:"bytes_stored"`
	CPUSeconds  float64   `json:"cpu_seconds"`
	UpdatedAt   time.Time `json:"updated_at"`
}
