// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package partitioning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/querymesh/internal/querymeta"
)

func TestPlanReturnsWholeRangeWithoutTimeColumn(t *testing.T) {
	in := Input{TimeRange: querymeta.TimeRange{StartUs: 10, EndUs: 20}, HasTimeColumn: false}
	out, err := Plan(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []querymeta.TimeRange{{StartUs: 10, EndUs: 20}}, out)
}

func TestPlanReturnsWholeRangeWhenBelowMinPartitionFloor(t *testing.T) {
	in := Input{
		TimeRange:              querymeta.TimeRange{StartUs: 0, EndUs: 3_600_000_000},
		HasTimeColumn:          true,
		ScanSizeBytes:          10,
		PerCPUSpeedBytesPerSec: 1,
		CPUCount:               1,
		MinPartitionSeconds:    1000,
		TargetPartitionSeconds: 100,
		MinStepUs:              60_000_000,
	}
	out, err := Plan(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []querymeta.TimeRange{in.TimeRange}, out)
}

// S6 from the spec's end-to-end scenarios: range [0, 3_600_000_000] us,
// min-step 60s, step 600s, Desc, cached range [1_800_000_000,
// 2_400_000_000]. Execution partitions must cover the complement of the
// cached range, every boundary a multiple of 60s, and the union of
// execution partitions with the cached range equals the full range.
func TestPlanScenarioS6PartitionGenerationWithCache(t *testing.T) {
	full := querymeta.TimeRange{StartUs: 0, EndUs: 3_600_000_000}
	in := Input{
		TimeRange:              full,
		HasTimeColumn:          true,
		ScanSizeBytes:          600,
		PerCPUSpeedBytesPerSec: 1,
		CPUCount:               1,
		MinPartitionSeconds:    1,
		TargetPartitionSeconds: 100,
		MinStepUs:              60_000_000,
		Desc:                   true,
		Cache: &CacheStrategy{CachedRanges: []querymeta.TimeRange{
			{StartUs: 1_800_000_000, EndUs: 2_400_000_000},
		}},
	}

	out, err := Plan(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	covered := append([]querymeta.TimeRange{}, out...)
	covered = append(covered, in.Cache.CachedRanges...)
	assertCoversExactly(t, full, covered)

	for _, p := range out {
		assert.Zero(t, p.StartUs%60_000_000, "start %d not min-step aligned", p.StartUs)
		assert.Zero(t, p.EndUs%60_000_000, "end %d not min-step aligned", p.EndUs)
		for _, c := range in.Cache.CachedRanges {
			assert.False(t, p.StartUs < c.EndUs && p.EndUs > c.StartUs, "partition %v overlaps cached range %v", p, c)
		}
	}
}

func TestPlanClampsPartitionCountTo1000(t *testing.T) {
	in := Input{
		TimeRange:              querymeta.TimeRange{StartUs: 0, EndUs: 1_000_000_000_000},
		HasTimeColumn:          true,
		ScanSizeBytes:          1_000_000_000,
		PerCPUSpeedBytesPerSec: 1,
		CPUCount:               1,
		MinPartitionSeconds:    1,
		TargetPartitionSeconds: 1,
		MinStepUs:              1,
	}
	out, err := Plan(context.Background(), in)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), 1000)
}

func TestPlanHistogramAlignedBoundariesSnapToOrigin(t *testing.T) {
	start := originUs + 1_000_000
	full := querymeta.TimeRange{StartUs: start, EndUs: start + 10*60_000_000}
	in := Input{
		TimeRange:              full,
		HasTimeColumn:          true,
		ScanSizeBytes:          600,
		PerCPUSpeedBytesPerSec: 1,
		CPUCount:               1,
		MinPartitionSeconds:    1,
		TargetPartitionSeconds: 100,
		MinStepUs:              60_000_000,
		AlignHistogram:         true,
		HistogramIntervalUs:    60_000_000,
	}
	out, err := Plan(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	// Every interior boundary snaps to an origin-aligned bucket edge; only
	// the first and last partitions may be clipped to the query's actual
	// (not necessarily bucket-aligned) start/end.
	for i := 0; i < len(out)-1; i++ {
		assert.Zero(t, (out[i].EndUs-originUs)%60_000_000)
		assert.Equal(t, out[i].EndUs, out[i+1].StartUs)
	}
}

func TestAppendMiniPartitionSplitsMostRecentEndWhenDesc(t *testing.T) {
	full := querymeta.TimeRange{StartUs: 0, EndUs: 1_000_000}
	parts := []querymeta.TimeRange{{StartUs: 0, EndUs: 1_000_000}}
	out := appendMiniPartition(parts, full, 100_000, true)
	require.Len(t, out, 2)
	assert.Equal(t, querymeta.TimeRange{StartUs: 900_000, EndUs: 1_000_000}, out[0])
	assert.Equal(t, querymeta.TimeRange{StartUs: 0, EndUs: 900_000}, out[1])
}

func TestUncoveredRangesWithNoCacheReturnsFullRange(t *testing.T) {
	full := querymeta.TimeRange{StartUs: 0, EndUs: 100}
	out := uncoveredRanges(full, nil)
	assert.Equal(t, []querymeta.TimeRange{full}, out)
}

// assertCoversExactly checks that the union of ranges (which may overlap
// or be unordered) exactly equals full, with no gaps.
func assertCoversExactly(t *testing.T, full querymeta.TimeRange, ranges []querymeta.TimeRange) {
	t.Helper()
	merged := append([]querymeta.TimeRange{}, ranges...)
	for i := 0; i < len(merged); i++ {
		for j := i + 1; j < len(merged); j++ {
			if merged[j].StartUs < merged[i].StartUs {
				merged[i], merged[j] = merged[j], merged[i]
			}
		}
	}
	collapsed := mergeRanges(merged)
	require.Len(t, collapsed, 1)
	assert.Equal(t, full, collapsed[0])
}
