// Package store defines the archive of finished topic runs.
package store

import (
	"context"
	"time"
)

// Store archives finished topic runs so they can be compared later.
type Store interface {
	Close() error

	// SaveRun persists a run with its topics and pruned terms. Run IDs are
	// unique; saving the same ID twice fails with internalerr.ErrInvalidInput.
	SaveRun(ctx context.Context, r Run) error
	// GetRun loads one run including topics and pruned terms.
	GetRun(ctx context.Context, id string) (Run, bool, error)
	// ListRuns returns run headers (no topics), newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Run is one archived execution of the topic pipeline.
type Run struct {
	ID            string // ULID, sorts by creation time
	CreatedAt     time.Time
	InputPath     string
	SourceKind    string // "enriched" or "cleaned"
	Topics        int    // K
	TermsPerTopic int    // N
	Docs          int
	VocabSize     int
	Seed          uint64

	TopicRows []Topic
	Pruned    []PrunedTerm
}

// Topic is one archived topic row.
type Topic struct {
	TopicID    int
	TopTerms   []string
	DocCount   int
	MeanWeight float64
}

// PrunedTerm is a term dropped by the max_df ceiling during the run.
type PrunedTerm struct {
	Token string
	DF    int64
}
