// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package promql

import "time"

// ExtrapolationKind selects how ExtrapolatedRate treats counter resets.
type ExtrapolationKind int

const (
	// Rate computes per-second increase, adjusted for counter resets.
	Rate ExtrapolationKind = iota
	// Increase computes total increase over the range, adjusted for
	// counter resets.
	Increase
	// Delta computes total change over the range without reset
	// adjustment, for gauges.
	Delta
)

func (k ExtrapolationKind) isCounter() bool {
	return k == Rate || k == Increase
}

// ExtrapolatedRate implements Prometheus's rate/increase/delta extrapolation
// (spec §8 invariant 9): given the samples covering [evalTS-range-offset,
// evalTS-offset], it extends the observed slope to the edges of the window
// in proportion to how close the first/last sample are to those edges. It
// reports (0, false) when fewer than two samples are available.
func ExtrapolatedRate(samples []Sample, evalTS int64, rangeDur, offset time.Duration, kind ExtrapolationKind) (float64, bool) {
	if len(samples) < 2 {
		return 0, false
	}

	rangeUs := rangeDur.Microseconds()
	offsetUs := offset.Microseconds()
	start := evalTS - (rangeUs + offsetUs)
	end := evalTS - offsetUs

	first := samples[0]
	last := samples[len(samples)-1]

	result := last.Value - first.Value

	if kind.isCounter() {
		prevValue := first.Value
		for _, s := range samples {
			if s.Value < prevValue {
				result += prevValue
			}
			prevValue = s.Value
		}
	}

	durationToStart := float64(first.TimestampUs-start) / 1000.0
	durationToEnd := float64(end-last.TimestampUs) / 1000.0

	sampledInterval := float64(last.TimestampUs-first.TimestampUs) / 1000.0
	avgDurationBetweenSamples := sampledInterval / float64(len(samples)-1)

	if kind.isCounter() && result > 0 && first.Value >= 0 {
		durationToZero := sampledInterval * (first.Value / result)
		if durationToZero < durationToStart {
			durationToStart = durationToZero
		}
	}

	extrapolationThreshold := avgDurationBetweenSamples * 1.1
	extrapolateToInterval := sampledInterval

	if durationToStart < extrapolationThreshold {
		extrapolateToInterval += durationToStart
	} else {
		extrapolateToInterval += avgDurationBetweenSamples / 2
	}
	if durationToEnd < extrapolationThreshold {
		extrapolateToInterval += durationToEnd
	} else {
		extrapolateToInterval += avgDurationBetweenSamples / 2
	}

	factor := extrapolateToInterval / sampledInterval
	if kind == Rate {
		result *= factor / rangeDur.Seconds()
	} else {
		result *= factor
	}

	return result, true
}
