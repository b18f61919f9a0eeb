// Package catalog tracks generated-dataset bookkeeping rows produced by the
// CSV/catalog generation job: a read-only record of what was generated, for
// which task, and how many samples it holds.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a Catalog entry: {id, name, task, target_labels, num_generated_samples}.
type Entry struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Task                string    `json:"task"`
	TargetLabels        []string  `json:"target_labels"`
	NumGeneratedSamples int       `json:"num_generated_samples"`
	CreatedAt           time.Time `json:"created_at"`
}

// CreateParams are the fields set when the generation job registers a
// finished dataset. There is no update endpoint: entries are write-once,
// recorded by the job that produced them.
type CreateParams struct {
	Name                string
	Task                string
	TargetLabels        []string
	NumGeneratedSamples int
}
