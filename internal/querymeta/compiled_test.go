// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package querymeta

import "testing"

func TestCompiledSQLValidate(t *testing.T) {
	ref := StreamRef{Org: "acme", StreamType: StreamTypeLogs, Name: "app"}
	schema := &Schema{
		Fields:         []Field{{Name: "_timestamp", Type: FieldTypeInt64}, {Name: "log", Type: FieldTypeUtf8}},
		TimestampField: DefaultTimestampField,
	}

	t.Run("empty streams rejected", func(t *testing.T) {
		c := &CompiledSQL{}
		if err := c.Validate(); err == nil {
			t.Fatal("expected error for empty streams")
		}
	})

	t.Run("equal item must exist in schema", func(t *testing.T) {
		c := &CompiledSQL{
			Streams:    map[StreamRef]*Schema{ref: schema},
			EqualItems: map[StreamRef][]EqualItem{ref: {{Field: "nope", Value: "x"}}},
		}
		if err := c.Validate(); err == nil {
			t.Fatal("expected error for unknown field")
		}
	})

	t.Run("valid compiled sql", func(t *testing.T) {
		c := &CompiledSQL{
			Streams:    map[StreamRef]*Schema{ref: schema},
			EqualItems: map[StreamRef][]EqualItem{ref: {{Field: "log", Value: "a"}}},
		}
		if err := c.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("index mode requires matching aggregation flag", func(t *testing.T) {
		c := &CompiledSQL{
			Streams:           map[StreamRef]*Schema{ref: schema},
			HasAggregation:    false,
			IndexOptimizeMode: &IndexOptimizeMode{Kind: IndexOptimizeSimpleTopN},
		}
		if err := c.Validate(); err == nil {
			t.Fatal("expected mismatch error")
		}
	})
}
