// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package aggcache implements C8: the per-bucket aggregation-result cache
// that lets a streaming-aggregate query skip re-scanning time ranges it has
// already fully aggregated (spec §4.8). Buckets are stored in BadgerDB as
// one key per bucket, each written inside a single transaction for
// atomicity.
package aggcache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/zeebo/xxh3"

	"github.com/tomtom215/querymesh/internal/metrics"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// Key identifies the cached aggregate family for one query shape (spec
// §4.8 "Key").
type Key struct {
	Org        string
	StreamType querymeta.StreamType
	Stream     string
	QueryHash  uint64
}

// StableHash derives the Key.QueryHash component from the query's
// cache-relevant inputs. Equal inputs (same SQL text, regions, clusters,
// and query_fn) always land on the same key; regions and clusters are
// hashed in the order given, so a reordered list yields a different key.
func StableHash(sql string, regions, clusters []string, queryFn string) uint64 {
	var b strings.Builder
	b.WriteString(sql)
	b.WriteByte(0)
	b.WriteString(strings.Join(regions, ","))
	b.WriteByte(0)
	b.WriteString(strings.Join(clusters, ","))
	b.WriteByte(0)
	b.WriteString(queryFn)
	return xxh3.HashString(b.String())
}

// DiscoveryResult reports how much of the requested range is already
// covered by immutable cache buckets (spec §4.8 "Discovery").
type DiscoveryResult struct {
	CacheCoverageRatio float64
	CachedRanges       []querymeta.TimeRange
	UncachedRanges     []querymeta.TimeRange
	RequiresExecution  bool
}

// minBucketWidth floors how fine BucketWidthForCardinality will ever go,
// so a high-cardinality group-by cannot fragment the cache into
// effectively per-row buckets.
const minBucketWidth = time.Minute

// BucketWidthForCardinality implements spec §4.8 "Bucket width": the
// width is the base width divided by the product of the group-by columns'
// cardinality estimates, floored at minBucketWidth.
func BucketWidthForCardinality(base time.Duration, cardinalities []int64) time.Duration {
	var product int64 = 1
	for _, c := range cardinalities {
		if c > 1 {
			product *= c
		}
	}
	if product <= 1 {
		return base
	}
	width := base / time.Duration(product)
	if width < minBucketWidth {
		return minBucketWidth
	}
	return width
}

// Cache persists per-bucket partial aggregates and answers coverage
// queries against them.
type Cache struct {
	db        *badger.DB
	Watermark time.Duration
	Now       func() time.Time
}

// Open creates (or opens) a Cache backed by a BadgerDB database at path.
func Open(path string, watermark time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open aggcache BadgerDB: %w", err)
	}
	return &Cache{db: db, Watermark: watermark, Now: time.Now}, nil
}

// Close releases the underlying BadgerDB database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// RunGC calls BadgerDB's value-log garbage collector every interval until
// ctx is done, following Badger's documented recommendation to reclaim
// space from a live database on a periodic loop rather than on every
// write. ErrNoRewrite (nothing to reclaim) is not an error worth stopping
// the loop over.
func (c *Cache) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				if err := c.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

func bucketKey(key Key, bucket querymeta.TimeRange) []byte {
	return []byte(fmt.Sprintf("aggcache:%s:%s:%s:%x:%d:%d",
		key.Org, key.StreamType, key.Stream, key.QueryHash, bucket.StartUs, bucket.EndUs))
}

// alignedBuckets tiles tr into contiguous width-sized buckets anchored at
// multiples of width from the Unix epoch, clipped to tr at both ends.
func alignedBuckets(tr querymeta.TimeRange, width time.Duration) []querymeta.TimeRange {
	if width <= 0 || tr.Empty() {
		return nil
	}
	widthUs := width.Microseconds()
	start := (tr.StartUs / widthUs) * widthUs

	var out []querymeta.TimeRange
	for start < tr.EndUs {
		end := start + widthUs
		b := querymeta.TimeRange{StartUs: maxI64(start, tr.StartUs), EndUs: minI64(end, tr.EndUs)}
		out = append(out, b)
		start = end
	}
	return out
}

// immutable reports whether bucket's upper bound is old enough that its
// cached contents can never change (spec §4.8 "Invariant").
func (c *Cache) immutable(bucket querymeta.TimeRange) bool {
	cutoff := c.Now().Add(-c.Watermark)
	return bucket.EndUs <= cutoff.UnixMicro()
}

// Discover tiles tr into width-sized buckets and reports which are already
// present (and immutable) in the cache.
func (c *Cache) Discover(ctx context.Context, key Key, tr querymeta.TimeRange, width time.Duration) (DiscoveryResult, error) {
	buckets := alignedBuckets(tr, width)
	if len(buckets) == 0 {
		return DiscoveryResult{RequiresExecution: false}, nil
	}

	var result DiscoveryResult
	var coveredUs int64
	totalUs := tr.Duration().Microseconds()

	err := c.db.View(func(txn *badger.Txn) error {
		for _, b := range buckets {
			if !c.immutable(b) {
				result.UncachedRanges = append(result.UncachedRanges, b)
				continue
			}
			_, err := txn.Get(bucketKey(key, b))
			switch {
			case err == nil:
				result.CachedRanges = append(result.CachedRanges, b)
				coveredUs += b.EndUs - b.StartUs
				metrics.RecordAggCacheLookup(true)
			case err == badger.ErrKeyNotFound:
				result.UncachedRanges = append(result.UncachedRanges, b)
				metrics.RecordAggCacheLookup(false)
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return DiscoveryResult{}, err
	}

	if totalUs > 0 {
		result.CacheCoverageRatio = float64(coveredUs) / float64(totalUs)
	}
	result.RequiresExecution = len(result.UncachedRanges) > 0
	return result, nil
}

// Update writes bucket's partial aggregate atomically; a single BadgerDB
// transaction guarantees the write is all-or-nothing per bucket.
func (c *Cache) Update(ctx context.Context, key Key, bucket querymeta.TimeRange, partial []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(bucketKey(key, bucket), partial)
	})
}

// Read returns the stored partial aggregate for bucket, if present.
func (c *Cache) Read(ctx context.Context, key Key, bucket querymeta.TimeRange) ([]byte, bool, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bucketKey(key, bucket))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
