// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package points

import (
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ai4all-network/coordinator/model"
)

// WindowCache memoizes PerformanceWindowSum per (dayID, contributorID)
// so that repeated weight lookups for the same day do not re-walk a
// contributor's full block history each time. Modeled on the teacher's
// common/cache.go LRU wrapper.
type WindowCache struct {
	cache *lru.Cache
}

type windowCacheKey struct {
	dayID         string
	contributorID string
}

// NewWindowCache builds a cache bounded to size entries; size 0 selects
// a sensible default.
func NewWindowCache(size int) (*WindowCache, error) {
	if size <= 0 {
		size = 4096
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &WindowCache{cache: c}, nil
}

// Get returns the cached window sum for (dayID, contributor.ID) if
// present, computing and storing it otherwise.
func (w *WindowCache) Get(dayID string, c *model.Contributor, lookback time.Duration, now time.Time) (float64, error) {
	key := windowCacheKey{dayID: dayID, contributorID: c.ID}
	if v, ok := w.cache.Get(key); ok {
		return v.(float64), nil
	}
	sum, err := PerformanceWindowSum(c.Blocks, lookback, now)
	if err != nil {
		return 0, err
	}
	w.cache.Add(key, sum)
	return sum, nil
}

// Purge drops every cached entry, used when a day rolls over.
func (w *WindowCache) Purge() {
	w.cache.Purge()
}
