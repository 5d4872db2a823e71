package cache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// ComputeFunc produces the report for a content hash on a cache miss.
type ComputeFunc func(ctx context.Context) (*types.Report, error)

// Cache guarantees at most one full pipeline execution per distinct content
// hash: concurrent callers for the same hash share one in-flight
// computation, while distinct hashes compute in full parallelism.
type Cache struct {
	store Store
	group singleflight.Group
}

func New(store Store) *Cache {
	return &Cache{store: store}
}

// Get returns the stored report for a hash, if present.
func (c *Cache) Get(ctx context.Context, hash string) (*types.Report, bool, error) {
	return c.store.Get(ctx, hash)
}

// GetOrCompute returns the cached report for hash, or runs compute exactly
// once and stores its result. The returned flag reports whether the caller
// was served an already-computed result.
func (c *Cache) GetOrCompute(ctx context.Context, hash string, compute ComputeFunc) (*types.Report, bool, error) {
	if report, ok, err := c.store.Get(ctx, hash); err != nil {
		return nil, false, err
	} else if ok {
		logger.Debugf("Cache hit for %s", hash)
		return report, true, nil
	}

	// computed is only ever set by the caller whose closure runs: callers
	// that join an in-flight computation never execute it, so each caller
	// reports its own flag.
	computed := false
	v, err, _ := c.group.Do(hash, func() (interface{}, error) {
		// re-check under the flight: another process may have stored it
		// between our miss and winning the flight
		if report, ok, err := c.store.Get(ctx, hash); err != nil {
			return nil, err
		} else if ok {
			return report, nil
		}

		report, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Put(ctx, report); err != nil {
			return nil, err
		}
		computed = true
		return report, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*types.Report), !computed, nil
}

// Recent returns the most recently scanned reports, newest first.
func (c *Cache) Recent(ctx context.Context, limit int) ([]types.Report, error) {
	return c.store.Recent(ctx, limit)
}

// Stats exposes the underlying store's scan statistics.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	return c.store.Stats(ctx)
}

// Close finalizes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
