// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package promql implements the metrics-stream value types spec §6 names
// (Sample, Label, Exemplar) and the Prometheus-compatible rate/increase/
// delta extrapolation spec §8 invariant 9 requires (C1's metrics-stream
// companion to the log/trace query path; wired wherever a stream_type of
// "metrics" needs sample accounting instead of row hits).
package promql

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// NameLabel is the reserved label holding the metric name.
const NameLabel = "__name__"

// Label is one name/value pair of a metric's label set.
type Label struct {
	Name  string
	Value string
}

// Labels is an ordered label set. Order affects Signature only insofar as
// insertion order is caller-supplied; Signature itself is order-independent
// (spec §8 invariant 6) because it sorts before hashing.
type Labels []Label

// WithoutMetricName drops NameLabel from the set.
func (ls Labels) WithoutMetricName() Labels {
	return ls.WithoutLabel(NameLabel)
}

// WithoutLabel drops the named label, if present.
func (ls Labels) WithoutLabel(name string) Labels {
	out := make(Labels, 0, len(ls))
	for _, l := range ls {
		if l.Name != name {
			out = append(out, l)
		}
	}
	return out
}

// Get returns the value of the first label named name, or "".
func (ls Labels) Get(name string) string {
	for _, l := range ls {
		if l.Name == name {
			return l.Value
		}
	}
	return ""
}

// Signature hashes the label set's (name, value) pairs, independent of
// insertion order (spec §8 invariant 6): the set is sorted by name (and by
// value on a name tie) before hashing so two label sets with the same pairs
// in different orders collide to the same signature.
func (ls Labels) Signature() uint64 {
	return ls.SignatureWithout()
}

// SignatureWithout is Signature excluding any label named in exclude.
func (ls Labels) SignatureWithout(exclude ...string) uint64 {
	kept := make(Labels, 0, len(ls))
	for _, l := range ls {
		skip := false
		for _, ex := range exclude {
			if l.Name == ex {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, l)
		}
	}
	sortLabels(kept)

	var h xxh3.Hasher
	for _, l := range kept {
		_, _ = h.WriteString(l.Name)
		_, _ = h.WriteString(l.Value)
	}
	return h.Sum64()
}

func sortLabels(ls Labels) {
	// insertion sort: label sets are small (typically under a dozen
	// entries), so this avoids pulling in sort.Slice's closure overhead
	// for what is a hot path in per-sample signature computation.
	for i := 1; i < len(ls); i++ {
		for j := i; j > 0 && less(ls[j], ls[j-1]); j-- {
			ls[j], ls[j-1] = ls[j-1], ls[j]
		}
	}
}

func less(a, b Label) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Value < b.Value
}

// Sample is one (timestamp, value) point of a metrics stream. Timestamp is
// stored internally in microseconds; the wire form (spec §6 "Sample (array
// form)") is [timestamp_seconds, value_string].
type Sample struct {
	TimestampUs int64
	Value       float64
}

// WireSample is the array-form wire encoding of a Sample.
type WireSample struct {
	TimestampSeconds int64
	Value            string
}

// ToWire converts s to its lossless array-form wire representation: the
// timestamp is divided by 1e6 and the value is rendered with enough
// precision to round-trip exactly.
func (s Sample) ToWire() WireSample {
	return WireSample{
		TimestampSeconds: s.TimestampUs / 1_000_000,
		Value:            strconv.FormatFloat(s.Value, 'g', -1, 64),
	}
}

// FromWire parses w back into a Sample, multiplying the timestamp by 1e6 and
// parsing the value string (spec §8 "Round-trip/idempotence").
func FromWire(w WireSample) (Sample, error) {
	v, err := strconv.ParseFloat(w.Value, 64)
	if err != nil {
		return Sample{}, err
	}
	return Sample{TimestampUs: w.TimestampSeconds * 1_000_000, Value: v}, nil
}

// Exemplar attaches a label set to one instant of a metric's series (spec
// §6 "Exemplar"); timestamp is stored internally in microseconds, wire form
// in seconds.
type Exemplar struct {
	TimestampUs int64
	Value       float64
	Labels      Labels
}

// WireExemplar is the struct-form wire encoding of an Exemplar.
type WireExemplar struct {
	TimestampSeconds int64
	Value            string
	Labels           map[string]string
}

// ToWire converts e to its wire representation.
func (e Exemplar) ToWire() WireExemplar {
	labels := make(map[string]string, len(e.Labels))
	for _, l := range e.Labels {
		labels[l.Name] = l.Value
	}
	return WireExemplar{
		TimestampSeconds: e.TimestampUs / 1_000_000,
		Value:            strconv.FormatFloat(e.Value, 'g', -1, 64),
		Labels:           labels,
	}
}
