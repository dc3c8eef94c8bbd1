// Package index persists selected artifacts as an index of which
// compilation records a downstream consumer should ingest.
package index

import (
	"context"

	"git.home.luguber.info/inful/besselect/internal/bes"
)

// Record is one indexed artifact file.
type Record struct {
	RunID      string
	Label      string
	Path       string
	URI        string
	SelectedAt int64
}

// Store defines the interface for persisting and retrieving selected
// artifacts.
type Store interface {
	// Put indexes every file of the artifact under the given run id.
	Put(ctx context.Context, runID string, artifact bes.Artifact) error

	// ByLabel retrieves all indexed records for a target label.
	ByLabel(ctx context.Context, label string) ([]Record, error)

	// Labels lists the distinct target labels present in the index.
	Labels(ctx context.Context) ([]string, error)

	// Close closes the store and releases resources.
	Close() error
}
