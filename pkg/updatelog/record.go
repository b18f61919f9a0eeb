// Package updatelog implements the deployment worker's update-log replay
// pipeline: one designated writer per deployment tails JSON-lines files
// produced by every replica, applies each record to the in-memory model,
// and periodically saves a new snapshot.
package updatelog

import (
	"encoding/json"
	"fmt"
)

// Kind is the closed set of update-log record variants.
type Kind string

const (
	KindUpvote         Kind = "upvote"
	KindAssociate      Kind = "associate"
	KindImplicitUpvote Kind = "implicit_upvote"
	KindInsert         Kind = "insert"
	KindDelete         Kind = "delete"
)

// Record is a tagged-variant sum type: exactly one of the payload fields is
// populated, selected by Kind. It is the Go-idiomatic equivalent of a
// closed union, decoded from one JSON line via a discriminator switch in
// Decode rather than a shared struct with every field optional.
type Record struct {
	Kind Kind

	Upvote         *UpvotePayload
	Associate      *AssociatePayload
	ImplicitUpvote *UpvotePayload
	Insert         *InsertPayload
	Delete         *DeletePayload
}

// UpvotePayload backs both Upvote and ImplicitUpvote records.
type UpvotePayload struct {
	ChunkIDs []string `json:"chunk_ids"`
	Queries  []string `json:"queries"`
}

// AssociatePayload links source queries to target queries/chunks.
type AssociatePayload struct {
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
}

// InsertPayload names the files a replica asked to ingest.
type InsertPayload struct {
	Files []FileRef `json:"files"`
}

// FileRef mirrors mlmodel.FileInfo in a JSON-friendly shape; updatelog does
// not import pkg/mlmodel types directly so the wire format stays decoupled
// from the in-process model interface.
type FileRef struct {
	Path        string `json:"path"`
	SourceType  string `json:"source_type"`
	ContentType string `json:"content_type"`
}

// DeletePayload names document IDs to remove.
type DeletePayload struct {
	DocIDs []string `json:"doc_ids"`
}

// MarshalJSON flattens Record back into a single {"kind":...,...} line.
func (r Record) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindUpvote:
		return marshalTagged(r.Kind, r.Upvote)
	case KindImplicitUpvote:
		return marshalTagged(r.Kind, r.ImplicitUpvote)
	case KindAssociate:
		return marshalTagged(r.Kind, r.Associate)
	case KindInsert:
		return marshalTagged(r.Kind, r.Insert)
	case KindDelete:
		return marshalTagged(r.Kind, r.Delete)
	default:
		return nil, fmt.Errorf("updatelog: unknown record kind %q", r.Kind)
	}
}

func marshalTagged(kind Kind, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	out := map[string]json.RawMessage{"kind": json.RawMessage(fmt.Sprintf("%q", kind))}
	for k, v := range m {
		out[k] = v
	}
	return json.Marshal(out)
}

// Decode parses one JSON line into a Record, dispatching on the "kind"
// discriminator field.
func Decode(line []byte) (Record, error) {
	var tagged struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(line, &tagged); err != nil {
		return Record{}, fmt.Errorf("updatelog: decoding record kind: %w", err)
	}

	switch tagged.Kind {
	case KindUpvote:
		var p UpvotePayload
		if err := json.Unmarshal(line, &p); err != nil {
			return Record{}, fmt.Errorf("updatelog: decoding upvote record: %w", err)
		}
		return Record{Kind: KindUpvote, Upvote: &p}, nil
	case KindImplicitUpvote:
		var p UpvotePayload
		if err := json.Unmarshal(line, &p); err != nil {
			return Record{}, fmt.Errorf("updatelog: decoding implicit_upvote record: %w", err)
		}
		return Record{Kind: KindImplicitUpvote, ImplicitUpvote: &p}, nil
	case KindAssociate:
		var p AssociatePayload
		if err := json.Unmarshal(line, &p); err != nil {
			return Record{}, fmt.Errorf("updatelog: decoding associate record: %w", err)
		}
		return Record{Kind: KindAssociate, Associate: &p}, nil
	case KindInsert:
		var p InsertPayload
		if err := json.Unmarshal(line, &p); err != nil {
			return Record{}, fmt.Errorf("updatelog: decoding insert record: %w", err)
		}
		return Record{Kind: KindInsert, Insert: &p}, nil
	case KindDelete:
		var p DeletePayload
		if err := json.Unmarshal(line, &p); err != nil {
			return Record{}, fmt.Errorf("updatelog: decoding delete record: %w", err)
		}
		return Record{Kind: KindDelete, Delete: &p}, nil
	default:
		return Record{}, fmt.Errorf("updatelog: unknown record kind %q", tagged.Kind)
	}
}
