// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomtom215/querymesh/internal/querymeta"
)

func TestApplyMetricsExtrapolation_Rate(t *testing.T) {
	req := querymeta.Request{
		StreamType: querymeta.StreamTypeMetrics,
		QueryFn:    "rate",
		TimeRange:  querymeta.TimeRange{StartUs: 15_000_000, EndUs: 75_000_000},
	}
	resp := &querymeta.Response{
		Hits: []querymeta.Row{
			{"_timestamp": int64(23_000_000), "value": 1.0, "job": "api"},
			{"_timestamp": int64(38_000_000), "value": 1.0, "job": "api"},
			{"_timestamp": int64(53_000_000), "value": 2.0, "job": "api"},
			{"_timestamp": int64(68_000_000), "value": 2.0, "job": "api"},
		},
	}

	applyMetricsExtrapolation(resp, req)

	assert.Len(t, resp.Hits, 1)
	assert.Equal(t, "matrix", resp.ResponseType)
	assert.InDelta(t, 0.0222, resp.Hits[0]["value"], 0.0001)
	assert.Equal(t, "api", resp.Hits[0]["job"])
}

func TestApplyMetricsExtrapolation_GroupsBySeries(t *testing.T) {
	req := querymeta.Request{
		StreamType: querymeta.StreamTypeMetrics,
		QueryFn:    "increase",
		TimeRange:  querymeta.TimeRange{StartUs: 15_000_000, EndUs: 75_000_000},
	}
	resp := &querymeta.Response{
		Hits: []querymeta.Row{
			{"_timestamp": int64(23_000_000), "value": 1.0, "job": "api"},
			{"_timestamp": int64(68_000_000), "value": 2.0, "job": "api"},
			{"_timestamp": int64(23_000_000), "value": 5.0, "job": "worker"},
			{"_timestamp": int64(68_000_000), "value": 9.0, "job": "worker"},
		},
	}

	applyMetricsExtrapolation(resp, req)

	assert.Len(t, resp.Hits, 2)
}

func TestApplyMetricsExtrapolation_NonMetricsPassesThrough(t *testing.T) {
	req := querymeta.Request{StreamType: querymeta.StreamTypeLogs, QueryFn: "rate"}
	resp := &querymeta.Response{Hits: []querymeta.Row{{"message": "hello"}}}

	applyMetricsExtrapolation(resp, req)

	assert.Len(t, resp.Hits, 1)
	assert.Equal(t, "hello", resp.Hits[0]["message"])
}

func TestApplyMetricsExtrapolation_NoQueryFnPassesThrough(t *testing.T) {
	req := querymeta.Request{StreamType: querymeta.StreamTypeMetrics}
	resp := &querymeta.Response{Hits: []querymeta.Row{{"_timestamp": int64(1), "value": 1.0}}}

	applyMetricsExtrapolation(resp, req)

	assert.Len(t, resp.Hits, 1)
}
