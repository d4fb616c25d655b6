// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package promql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabels_SignatureOrderIndependent(t *testing.T) {
	a := Labels{{Name: "job", Value: "api"}, {Name: "instance", Value: "10.0.0.1"}}
	b := Labels{{Name: "instance", Value: "10.0.0.1"}, {Name: "job", Value: "api"}}

	assert.Equal(t, a.Signature(), b.Signature())
}

func TestLabels_SignatureDiffersOnValue(t *testing.T) {
	a := Labels{{Name: "job", Value: "api"}}
	b := Labels{{Name: "job", Value: "worker"}}

	assert.NotEqual(t, a.Signature(), b.Signature())
}

func TestLabels_SignatureWithout(t *testing.T) {
	a := Labels{{Name: "__name__", Value: "http_requests_total"}, {Name: "job", Value: "api"}}
	b := Labels{{Name: "__name__", Value: "http_requests_total"}, {Name: "job", Value: "api"}}

	assert.Equal(t, a.WithoutMetricName().Signature(), b.SignatureWithout(NameLabel))
}

func TestLabels_WithoutMetricName(t *testing.T) {
	ls := Labels{{Name: NameLabel, Value: "up"}, {Name: "job", Value: "api"}}
	out := ls.WithoutMetricName()

	assert.Len(t, out, 1)
	assert.Equal(t, "job", out[0].Name)
}

func TestLabels_Get(t *testing.T) {
	ls := Labels{{Name: "job", Value: "api"}}

	assert.Equal(t, "api", ls.Get("job"))
	assert.Equal(t, "", ls.Get("missing"))
}

func TestSample_WireRoundTrip(t *testing.T) {
	s := Sample{TimestampUs: 23_000_000, Value: 1.5}
	w := s.ToWire()

	assert.Equal(t, int64(23), w.TimestampSeconds)
	assert.Equal(t, "1.5", w.Value)

	back, err := FromWire(w)
	assert.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestExemplar_ToWire(t *testing.T) {
	e := Exemplar{
		TimestampUs: 23_000_000,
		Value:       1.0,
		Labels:      Labels{{Name: "trace_id", Value: "abc123"}},
	}
	w := e.ToWire()

	assert.Equal(t, int64(23), w.TimestampSeconds)
	assert.Equal(t, "1", w.Value)
	assert.Equal(t, "abc123", w.Labels["trace_id"])
}

func TestIsValidLabelName(t *testing.T) {
	assert.True(t, IsValidLabelName("job"))
	assert.True(t, IsValidLabelName("_internal"))
	assert.False(t, IsValidLabelName("~invalid-label-name"))
}
