// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package assign

import (
	"encoding/binary"
	"math"

	"github.com/VictoriaMetrics/fastcache"
)

// RosterCache caches each contributor's lottery weight for the locked
// roster of a single day, avoiding recomputation if the coordinator
// needs the weights more than once while building the day's audit
// trail (e.g. to log the distribution alongside WORK_ASSIGNED). Keyed
// by dayID+contributorID byte strings, matching the teacher's use of a
// byte-keyed cache (common/cache.go) ahead of in-process structures.
type RosterCache struct {
	cache *fastcache.Cache
}

// NewRosterCache allocates a cache of roughly maxBytes capacity.
func NewRosterCache(maxBytes int) *RosterCache {
	if maxBytes <= 0 {
		maxBytes = 4 * 1024 * 1024
	}
	return &RosterCache{cache: fastcache.New(maxBytes)}
}

func rosterCacheKey(dayID, contributorID string) []byte {
	return append([]byte(dayID+"|"), contributorID...)
}

// Put stores weight for (dayID, contributorID).
func (r *RosterCache) Put(dayID, contributorID string, weight float64) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(weight))
	r.cache.Set(rosterCacheKey(dayID, contributorID), buf)
}

// Get returns the cached weight and true, or (0, false) on a miss.
func (r *RosterCache) Get(dayID, contributorID string) (float64, bool) {
	buf, ok := r.cache.HasGet(nil, rosterCacheKey(dayID, contributorID))
	if !ok || len(buf) != 8 {
		return 0, false
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf)), true
}

// Reset clears every cached weight, used when a new day starts.
func (r *RosterCache) Reset() {
	r.cache.Reset()
}
