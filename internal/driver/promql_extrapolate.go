// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package driver

import (
	"time"

	"github.com/tomtom215/querymesh/internal/promql"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// reservedMetricColumns are excluded from a metrics row's label signature:
// they carry the sample itself, not series identity.
var reservedMetricColumns = map[string]bool{
	querymeta.DefaultTimestampField: true,
	"value":                         true,
}

// applyMetricsExtrapolation implements spec §8 invariant 9: when a metrics
// query names rate(), increase(), or delta() as its QueryFn, raw per-sample
// hits are regrouped by label-set signature (spec §8 invariant 6) into one
// series per distinct label set, each collapsed to its extrapolated value
// over the query's time range. Non-metrics streams and queries without one
// of those three QueryFn values pass through untouched.
func applyMetricsExtrapolation(resp *querymeta.Response, req querymeta.Request) {
	if req.StreamType != querymeta.StreamTypeMetrics {
		return
	}
	kind, ok := extrapolationKindFor(req.QueryFn)
	if !ok {
		return
	}

	type series struct {
		labels  promql.Labels
		samples []promql.Sample
	}
	bySignature := make(map[uint64]*series)
	var order []uint64

	for _, row := range resp.Hits {
		ts, tsOK := toMicros(row[querymeta.DefaultTimestampField])
		val, valOK := toFloat(row["value"])
		if !tsOK || !valOK {
			continue
		}

		labels := labelsFromRow(row)
		sig := labels.Signature()
		s, exists := bySignature[sig]
		if !exists {
			s = &series{labels: labels}
			bySignature[sig] = s
			order = append(order, sig)
		}
		s.samples = append(s.samples, promql.Sample{TimestampUs: ts, Value: val})
	}

	if len(bySignature) == 0 {
		return
	}

	rangeDur := req.TimeRange.Duration()
	evalTS := req.TimeRange.EndUs

	rows := make([]querymeta.Row, 0, len(order))
	for _, sig := range order {
		s := bySignature[sig]
		value, ok := promql.ExtrapolatedRate(s.samples, evalTS, rangeDur, 0, kind)
		if !ok {
			continue
		}
		out := querymeta.Row{"value": value}
		for _, l := range s.labels {
			out[l.Name] = l.Value
		}
		rows = append(rows, out)
	}

	resp.Hits = rows
	resp.Total = int64(len(rows))
	resp.ResponseType = "matrix"
}

func extrapolationKindFor(queryFn string) (promql.ExtrapolationKind, bool) {
	switch queryFn {
	case "rate":
		return promql.Rate, true
	case "increase":
		return promql.Increase, true
	case "delta":
		return promql.Delta, true
	default:
		return 0, false
	}
}

func labelsFromRow(row querymeta.Row) promql.Labels {
	labels := make(promql.Labels, 0, len(row))
	for col, v := range row {
		if reservedMetricColumns[col] {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		labels = append(labels, promql.Label{Name: col, Value: s})
	}
	return labels
}

func toMicros(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case int:
		return int64(t), true
	case time.Duration:
		return int64(t / time.Microsecond), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}
