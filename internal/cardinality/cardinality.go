// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package cardinality caches per-(org, stream_type, stream, field) distinct
// value count estimates for one hour, so C8's cache-bucket-width derivation
// does not re-run an approx_distinct scan on every query (spec §4.8
// "Bucket width").
package cardinality

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/tomtom215/querymesh/internal/logging"
	"github.com/tomtom215/querymesh/internal/metrics"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// TTL is how long a cardinality estimate stays valid before the next
// lookup re-runs the approx_distinct query (spec §4.8).
const TTL = time.Hour

// Key identifies the column an estimate belongs to.
type Key struct {
	Org        string
	StreamType querymeta.StreamType
	Stream     string
	Field      string
}

// Estimator runs the approx_distinct(field) FROM stream query over the
// trailing hour when the cache misses (spec §4.8 "Bucket width").
type Estimator func(ctx context.Context, key Key) (int64, error)

// Cache is a Ristretto-backed, 1-hour-TTL cardinality estimate cache.
type Cache struct {
	store     *ristretto.Cache[Key, int64]
	estimator Estimator
}

// New builds a Cache backed by a Ristretto instance sized for
// maxEntriesHint concurrent distinct keys.
func New(maxEntriesHint int64, estimator Estimator) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config[Key, int64]{
		NumCounters: maxEntriesHint * 10,
		MaxCost:     maxEntriesHint,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{store: store, estimator: estimator}, nil
}

// Estimate returns the cached distinct-count for key, refreshing it via the
// estimator on a cache miss or expiry.
func (c *Cache) Estimate(ctx context.Context, key Key) (int64, error) {
	if v, ok := c.store.Get(key); ok {
		metrics.RecordCardinalityCacheLookup(true)
		return v, nil
	}
	metrics.RecordCardinalityCacheLookup(false)

	n, err := c.estimator(ctx, key)
	if err != nil {
		return 0, err
	}

	if !c.store.SetWithTTL(key, n, 1, TTL) {
		logging.Debug().Str("stream", key.Stream).Str("field", key.Field).Msg("cardinality cache set dropped")
	}
	c.store.Wait()
	return n, nil
}

// Close releases the underlying Ristretto instance.
func (c *Cache) Close() {
	c.store.Close()
}
