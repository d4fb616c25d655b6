// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package querymeta holds the data model shared by every layer of the query
// engine: stream references, schemas, file and node identifiers, and the
// request/response envelopes described in spec §3 and §6.
package querymeta

import "fmt"

// StreamType is one of the stream kinds a query can target.
type StreamType string

const (
	StreamTypeLogs             StreamType = "logs"
	StreamTypeMetrics          StreamType = "metrics"
	StreamTypeTraces           StreamType = "traces"
	StreamTypeEnrichmentTables StreamType = "enrichment_tables"
	StreamTypeLookupTable      StreamType = "lookup_table"
	StreamTypeIndex            StreamType = "index"
)

// StreamRef is a namespace-qualified identifier for a stream: the pair
// (Org, StreamType, Name) uniquely keys a Schema; Variant distinguishes
// sub-streams such as a specific enrichment table revision.
type StreamRef struct {
	Org        string
	StreamType StreamType
	Name       string
	Variant    string
}

// Key returns the (org, stream_type, name) identity used to index schemas,
// excluding Variant.
func (s StreamRef) Key() string {
	return fmt.Sprintf("%s/%s/%s", s.Org, s.StreamType, s.Name)
}

func (s StreamRef) String() string {
	if s.Variant == "" {
		return s.Key()
	}
	return fmt.Sprintf("%s/%s/%s/%s", s.Org, s.StreamType, s.Name, s.Variant)
}

// IsEnrichment reports whether this stream is an enrichment table, whose
// time range is always (stream start, now) per spec §4.4.
func (s StreamRef) IsEnrichment() bool {
	return s.StreamType == StreamTypeEnrichmentTables || s.Variant == "enrich"
}

// FieldType is the logical type of a schema field.
type FieldType string

const (
	FieldTypeInt64   FieldType = "int64"
	FieldTypeFloat64 FieldType = "float64"
	FieldTypeUtf8    FieldType = "utf8"
	FieldTypeBool    FieldType = "bool"
)

// Field describes one column of a stream's schema.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
}

// Settings holds the per-stream configuration that drives pruning, index
// selection, and retention (spec §3 "Schema").
type Settings struct {
	PartitionKeys        []string
	FullTextSearchFields []string
	IndexFields          []string
	MaxQueryRangeHours   int64
	DataRetentionDays    int64
	ApproxPartition      bool
}

// Schema is the ordered field list plus settings for one stream. Every
// stream has a distinguished timestamp field (TimestampField, microseconds
// since epoch, i64) and optionally a distinguished row-id field
// (RowIDField). Schemas are shared-immutable: multiple compiled plans may
// reference the same *Schema value.
type Schema struct {
	Fields         []Field
	TimestampField string // always "_timestamp"
	RowIDField     string // "_o2_id" if present, else ""
	Settings       Settings
}

// DefaultTimestampField is the distinguished timestamp column every stream
// must carry.
const DefaultTimestampField = "_timestamp"

// DefaultRowIDField is the distinguished row-id column, when present.
const DefaultRowIDField = "_o2_id"

// HasField reports whether name exists in the schema.
func (s *Schema) HasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// IsFTSField reports whether name is one of the schema's full-text-search
// fields.
func (s *Schema) IsFTSField(name string) bool {
	for _, f := range s.Settings.FullTextSearchFields {
		if f == name {
			return true
		}
	}
	return false
}

// IsIndexField reports whether name is one of the schema's index fields.
func (s *Schema) IsIndexField(name string) bool {
	for _, f := range s.Settings.IndexFields {
		if f == name {
			return true
		}
	}
	return false
}
