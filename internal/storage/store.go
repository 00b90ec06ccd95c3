package storage

import (
	"context"

	"modport/internal/mappings"
)

// Store combines run history and mapping persistence.
type Store interface {
	RunStore
	MappingStore
	Close() error
}

// RunStore defines operations for persisting translation runs.
type RunStore interface {
	// SaveRun upserts a run and its generated files.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by its ID, including generated files.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns retrieves the most recent runs, newest first, without
	// file contents.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// FindRunsByFile retrieves all runs recorded for a source file.
	FindRunsByFile(ctx context.Context, sourceFile string) ([]*Run, error)
}

// MappingStore defines operations for user-maintained API mappings.
type MappingStore interface {
	// SaveMappings upserts mapping entries keyed by source signature.
	SaveMappings(ctx context.Context, entries []mappings.Mapping) error

	// LoadMappings returns all stored mappings in insertion order.
	LoadMappings(ctx context.Context) ([]mappings.Mapping, error)

	// DeleteMappings removes mappings by source signature.
	DeleteMappings(ctx context.Context, signatures []string) error
}
