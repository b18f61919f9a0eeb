// Package mlmodel defines the opaque in-process kernel interface every
// deployed model implements: train, predict, and the mutation ops the
// update-log replay pipeline applies. The control plane never inspects a
// model's internals; it only calls these methods and persists the result.
package mlmodel

import "context"

// FileInfo describes one document source an Insert call should ingest,
// possibly cloud-hosted.
type FileInfo struct {
	Path        string
	SourceType  string // "local", "s3", "azure", "gcs"
	ContentType string
}

// PredictRequest is a single query against a deployed model.
type PredictRequest struct {
	Query       string
	TopK        int
	Constraints map[string]string
}

// Reference is one ranked retrieval result.
type Reference struct {
	DocID string
	Text  string
	Score float64
}

// PredictResult is what predict returns: ranked references plus an
// optional generated answer when the model composes an LLM.
type PredictResult struct {
	References      []Reference
	GeneratedAnswer string
}

// Model is the opaque kernel interface a deployment worker drives.
// Implementations are not required to be safe for concurrent mutation;
// the single-writer rule in pkg/updatelog exists precisely so only one
// goroutine ever calls Insert/Delete/Upvote/Associate/Save at a time.
type Model interface {
	// Train runs a full training pass against dataRefs, used only by the
	// training job path, never by a deployment worker.
	Train(ctx context.Context, dataRefs []string, hyperparameters map[string]string) error

	// Predict answers a single read-only query.
	Predict(ctx context.Context, req PredictRequest) (*PredictResult, error)

	// Insert ingests new documents into the model.
	Insert(ctx context.Context, files []FileInfo) error

	// Delete removes documents by ID.
	Delete(ctx context.Context, docIDs []string) error

	// Upvote records positive feedback for chunk IDs against queries.
	Upvote(ctx context.Context, chunkIDs []string, queries []string) error

	// Associate links source queries to target queries/chunks.
	Associate(ctx context.Context, sources []string, targets []string) error

	// Save atomically persists the model to artifactPath.
	Save(ctx context.Context, artifactPath string) error

	// Load restores the model from artifactPath.
	Load(ctx context.Context, artifactPath string) error
}
