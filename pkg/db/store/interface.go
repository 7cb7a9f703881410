package store

import (
	"context"

	"github.com/heroku-miraheze/ed2kd/pkg/db/search"
	"github.com/heroku-miraheze/ed2kd/pkg/ed2k"
)

// CatalogStore defines the interface for catalog operations
type CatalogStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error
	Reset(ctx context.Context) error

	// Ingestion: register owner as a source for every named file,
	// creating or updating the file records. Empty-name inputs are
	// skipped. Processing stops at the first storage failure; records
	// already written stay committed.
	ShareFiles(ctx context.Context, owner Endpoint, inputs []FileShareInput) error

	// RemoveSourcesForOwner withdraws every source the owner
	// announced, regardless of file. Counter adjustment and pruning
	// of fileless records happen as part of each deletion.
	RemoveSourcesForOwner(ctx context.Context, owner Endpoint) error

	// SourcesForFile returns up to limit live sources for the file
	// identified by the content hash. No ordering is guaranteed.
	SourcesForFile(ctx context.Context, hash [ed2k.HashSize]byte, limit int) ([]Endpoint, error)

	// SearchFiles executes a compiled query and streams at most limit
	// matching rows into sink. It returns the number of rows
	// produced, which is smaller than limit when fewer files match.
	SearchFiles(ctx context.Context, query *search.Query, limit int, sink RowSink) (int, error)
}
