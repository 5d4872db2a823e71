package cache

import (
	"context"
	"time"

	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// Store is the durable backing of the result cache. Keys are content
// hashes; values are immutable reports. Schema stability across process
// restarts is part of the contract: previously computed assessments stay
// retrievable.
type Store interface {
	// Get returns the stored report for a content hash, if any.
	Get(ctx context.Context, hash string) (*types.Report, bool, error)

	// Put stores a report under its content hash. Entries are immutable:
	// storing an already-present hash is a no-op.
	Put(ctx context.Context, report *types.Report) error

	// Recent returns up to limit reports, most recently scanned first.
	// A non-positive limit returns all stored reports.
	Recent(ctx context.Context, limit int) ([]types.Report, error)

	// Stats returns scan statistics.
	Stats(ctx context.Context) (Stats, error)

	// Close finalizes the store.
	Close() error
}

// Stats holds scan statistics for the stats boundary.
type Stats struct {
	TotalScans    int            `json:"total_scans"`
	ByVerdict     map[string]int `json:"by_verdict"`
	LastUpdatedAt time.Time      `json:"last_updated_at"`
}
