// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package partitioning implements C7: splitting a query's time range into
// an ordered list of sub-partitions the driver executes sequentially
// (spec §4.7).
package partitioning

import (
	"context"
	"sort"
	"time"

	"github.com/tomtom215/querymesh/internal/querymeta"
)

// originUs anchors histogram-aligned bucket boundaries; it matches the
// date_bin origin the SQL and logical-plan layers rewrite histogram()
// calls against (spec §9, "moving to a different origin changes bucket
// alignment").
var originUs = mustOriginUs()

func mustOriginUs() int64 {
	t, err := time.Parse("2006-01-02T15:04:05", querymeta.HistogramOrigin)
	if err != nil {
		panic("partitioning: invalid histogram origin: " + err.Error())
	}
	return t.UnixMicro()
}

// CacheStrategy narrows partition generation to the ranges an aggregation
// cache (C8) has not already answered. CachedRanges need not be sorted or
// disjoint on input.
type CacheStrategy struct {
	CachedRanges []querymeta.TimeRange
}

// Input is everything the planner needs to produce sub-partitions for one
// query (spec §4.7 "Contract").
type Input struct {
	TimeRange querymeta.TimeRange

	HasTimeColumn bool
	IsExplain     bool
	SkipFileList  bool

	MinStepUs              int64
	TargetPartitionSeconds int64
	MinPartitionSeconds    int64
	CPUCount               int
	PerCPUSpeedBytesPerSec int64
	ScanSizeBytes          int64
	Desc                   bool
	StreamingAggEnabled    bool
	MaxQueryRangeUs        int64 // 0 means unbounded
	AlignHistogram         bool
	HistogramIntervalUs    int64 // 0 means "no histogram in this query"
	IndexAlignEnabled      bool
	UseInvertedIndex       bool
	OriginalSizeBytes      int64
	IndexSizeBytes         int64
	MiniPartition          bool
	MiniPartitionSeconds   int64
	Cache                  *CacheStrategy
}

// Plan implements spec §4.7's 8-step algorithm.
func Plan(_ context.Context, in Input) ([]querymeta.TimeRange, error) {
	full := in.TimeRange

	// Step 1.
	if !in.HasTimeColumn || in.IsExplain || (in.SkipFileList && !in.StreamingAggEnabled) {
		return []querymeta.TimeRange{full}, nil
	}

	// Step 2.
	denom := in.PerCPUSpeedBytesPerSec * int64(maxInt(in.CPUCount, 1))
	var totalSecs int64
	if denom > 0 {
		totalSecs = in.ScanSizeBytes / denom
	}
	if totalSecs <= maxInt64(in.MinPartitionSeconds, 0) {
		return []querymeta.TimeRange{full}, nil
	}

	// Step 3.
	target := in.TargetPartitionSeconds
	if target <= 0 {
		target = 1
	}
	partNum := ceilDiv(totalSecs, target)
	partNum = clamp(partNum, 1, 1000)

	// Step 4.
	minStep := in.MinStepUs
	if minStep <= 0 {
		minStep = 1
	}
	step := full.Duration().Microseconds() / partNum
	step = maxInt64(step, minStep)
	step = alignDown(step, minStep)

	// Step 5.
	if in.MaxQueryRangeUs > 0 && step > in.MaxQueryRangeUs {
		step = alignDown(in.MaxQueryRangeUs, minStep)
	}

	// Step 6.
	if in.IndexAlignEnabled && in.UseInvertedIndex && in.IndexSizeBytes > 0 {
		ratio := float64(in.OriginalSizeBytes) / float64(in.IndexSizeBytes)
		if ratio > 1 {
			step = alignDown(int64(float64(step)*ratio), minStep)
		}
	}
	if step < minStep {
		step = minStep
	}

	histogramAligned := in.AlignHistogram || in.HistogramIntervalUs > 0
	if histogramAligned && in.HistogramIntervalUs > 0 {
		step = in.HistogramIntervalUs
	}

	// Step 8 computes the ranges still needing execution; step 7 then
	// fixed-widths (or histogram-aligns) each of them independently so
	// cache boundaries are always partition boundaries too.
	targets := uncoveredRanges(full, in.Cache)

	var out []querymeta.TimeRange
	for _, r := range targets {
		out = append(out, march(r, step, minStep, in.Desc, histogramAligned)...)
	}

	if in.MiniPartition && in.MiniPartitionSeconds > 0 {
		out = appendMiniPartition(out, full, in.MiniPartitionSeconds*1_000_000, in.Desc)
	}

	return out, nil
}

// uncoveredRanges returns the complement of cache.CachedRanges within
// full, sorted in ascending time order. With no cache strategy the whole
// range is "uncovered".
func uncoveredRanges(full querymeta.TimeRange, cache *CacheStrategy) []querymeta.TimeRange {
	if cache == nil || len(cache.CachedRanges) == 0 {
		return []querymeta.TimeRange{full}
	}

	cached := make([]querymeta.TimeRange, 0, len(cache.CachedRanges))
	for _, r := range cache.CachedRanges {
		clipped := intersect(r, full)
		if clipped.StartUs < clipped.EndUs {
			cached = append(cached, clipped)
		}
	}
	sort.Slice(cached, func(i, j int) bool { return cached[i].StartUs < cached[j].StartUs })

	merged := mergeRanges(cached)

	var uncovered []querymeta.TimeRange
	cursor := full.StartUs
	for _, c := range merged {
		if c.StartUs > cursor {
			uncovered = append(uncovered, querymeta.TimeRange{StartUs: cursor, EndUs: c.StartUs})
		}
		if c.EndUs > cursor {
			cursor = c.EndUs
		}
	}
	if cursor < full.EndUs {
		uncovered = append(uncovered, querymeta.TimeRange{StartUs: cursor, EndUs: full.EndUs})
	}
	return uncovered
}

func intersect(a, b querymeta.TimeRange) querymeta.TimeRange {
	start := maxInt64(a.StartUs, b.StartUs)
	end := minInt64(a.EndUs, b.EndUs)
	if end < start {
		end = start
	}
	return querymeta.TimeRange{StartUs: start, EndUs: end}
}

func mergeRanges(sorted []querymeta.TimeRange) []querymeta.TimeRange {
	var out []querymeta.TimeRange
	for _, r := range sorted {
		if len(out) == 0 || r.StartUs > out[len(out)-1].EndUs {
			out = append(out, r)
			continue
		}
		if r.EndUs > out[len(out)-1].EndUs {
			out[len(out)-1].EndUs = r.EndUs
		}
	}
	return out
}

// march fixed-width-partitions r by step, aligning boundaries to origin
// when histogramAligned, marching from the end backward when desc, from
// the start forward otherwise (spec §4.7 step 7).
func march(r querymeta.TimeRange, step, minStep int64, desc, histogramAligned bool) []querymeta.TimeRange {
	if r.StartUs >= r.EndUs {
		return nil
	}
	if step <= 0 {
		step = minStep
	}

	var parts []querymeta.TimeRange
	if desc {
		end := r.EndUs
		for end > r.StartUs {
			start := end - step
			if histogramAligned {
				start = alignDownOrigin(end, step)
				if start >= end {
					start = end - step
				}
			}
			if start < r.StartUs {
				start = r.StartUs
			}
			parts = append(parts, querymeta.TimeRange{StartUs: start, EndUs: end})
			end = start
		}
		return parts
	}

	start := r.StartUs
	for start < r.EndUs {
		end := start + step
		if histogramAligned {
			aligned := alignDownOrigin(start, step) + step
			if aligned > start {
				end = aligned
			}
		}
		if end > r.EndUs {
			end = r.EndUs
		}
		parts = append(parts, querymeta.TimeRange{StartUs: start, EndUs: end})
		start = end
	}
	return parts
}

// alignDownOrigin rounds t down to the nearest origin + k*step boundary.
func alignDownOrigin(t, step int64) int64 {
	if step <= 0 {
		return t
	}
	offset := t - originUs
	return originUs + floorDiv(offset, step)*step
}

// appendMiniPartition splits a short partition off the most-recent end of
// the overall range so interactive search returns an initial result
// quickly (spec §4.7 step 7).
func appendMiniPartition(parts []querymeta.TimeRange, full querymeta.TimeRange, miniUs int64, desc bool) []querymeta.TimeRange {
	if len(parts) == 0 || miniUs >= full.Duration().Microseconds() {
		return parts
	}

	if desc {
		head := parts[0]
		if head.EndUs-head.StartUs <= miniUs {
			return parts
		}
		boundary := head.EndUs - miniUs
		mini := querymeta.TimeRange{StartUs: boundary, EndUs: head.EndUs}
		rest := append([]querymeta.TimeRange{{StartUs: head.StartUs, EndUs: boundary}}, parts[1:]...)
		return append([]querymeta.TimeRange{mini}, rest...)
	}

	tail := parts[len(parts)-1]
	if tail.EndUs-tail.StartUs <= miniUs {
		return parts
	}
	boundary := tail.EndUs - miniUs
	rest := append(append([]querymeta.TimeRange{}, parts[:len(parts)-1]...), querymeta.TimeRange{StartUs: tail.StartUs, EndUs: boundary})
	return append(rest, querymeta.TimeRange{StartUs: boundary, EndUs: tail.EndUs})
}

func alignDown(v, step int64) int64 {
	if step <= 0 {
		return v
	}
	return v - v%step
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
