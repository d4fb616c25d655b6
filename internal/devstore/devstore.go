// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package devstore is the in-memory stream-metadata backend the single-node
// binary seeds at startup to satisfy driver.SchemaStore,
// cluster.FileListStore, and cluster.EnrichStartLookup. Schema registry
// persistence is an explicit non-goal (spec §1): a real deployment backs
// these interfaces with whatever store owns ingestion, not this package.
// devstore exists so cmd/queryengine has something real to wire the
// driver's collaborators to without inventing a persistence layer the spec
// excludes.
package devstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/tomtom215/querymesh/internal/querymeta"
)

// Manifest is the YAML shape loaded from disk: one entry per stream,
// keyed by "org/stream_type/name".
type Manifest struct {
	Streams map[string]StreamManifest `yaml:"streams"`
}

// StreamManifest seeds one stream's schema, file list, and (for
// enrichment tables) the backing data's earliest timestamp.
type StreamManifest struct {
	TimestampField string          `yaml:"timestamp_field"`
	RowIDField     string          `yaml:"row_id_field"`
	Fields         []ManifestField `yaml:"fields"`
	FullTextFields []string        `yaml:"fts_fields"`
	IndexFields    []string        `yaml:"index_fields"`
	PartitionKeys  []string        `yaml:"partition_keys"`
	Files          []ManifestFile  `yaml:"files"`
	EnrichStart    *time.Time      `yaml:"enrich_start"`
}

// ManifestField is one schema column.
type ManifestField struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// ManifestFile is one parquet file entry in a stream's file list.
type ManifestFile struct {
	ID           int64 `yaml:"id"`
	Records      int64 `yaml:"records"`
	OriginalSize int64 `yaml:"original_size"`
}

// Store is a concurrent-safe, process-lifetime stream metadata registry.
// The zero value is ready to use.
type Store struct {
	mu      sync.RWMutex
	schemas map[string]*querymeta.Schema
	files   map[string]querymeta.FileList
	enrich  map[string]time.Time
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		schemas: make(map[string]*querymeta.Schema),
		files:   make(map[string]querymeta.FileList),
		enrich:  make(map[string]time.Time),
	}
}

func streamKey(org string, st querymeta.StreamType, name string) string {
	return querymeta.StreamRef{Org: org, StreamType: st, Name: name}.Key()
}

// Seed registers one stream's schema and file list, overwriting any prior
// entry for the same (org, streamType, name).
func (s *Store) Seed(org string, st querymeta.StreamType, name string, schema *querymeta.Schema, files querymeta.FileList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := streamKey(org, st, name)
	s.schemas[key] = schema
	s.files[key] = files
}

// SeedEnrichStart records the earliest timestamp the named enrichment
// table's backing data covers.
func (s *Store) SeedEnrichStart(org, name string, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrich[org+"/"+name] = start
}

// LoadManifest parses a YAML manifest and seeds every stream it describes.
// Intended for local development and tests: CONFIG_PATH-style deployments
// point cmd/queryengine at a manifest describing the streams a demo
// cluster's ingesters actually hold.
func (s *Store) LoadManifest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read devstore manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse devstore manifest %s: %w", path, err)
	}
	for key, sm := range m.Streams {
		ref, err := parseStreamKey(key)
		if err != nil {
			return err
		}
		schema := &querymeta.Schema{
			TimestampField: sm.TimestampField,
			RowIDField:     sm.RowIDField,
			Settings: querymeta.Settings{
				FullTextSearchFields: sm.FullTextFields,
				IndexFields:          sm.IndexFields,
				PartitionKeys:        sm.PartitionKeys,
			},
		}
		if schema.TimestampField == "" {
			schema.TimestampField = querymeta.DefaultTimestampField
		}
		for _, f := range sm.Fields {
			schema.Fields = append(schema.Fields, querymeta.Field{
				Name:     f.Name,
				Type:     querymeta.FieldType(f.Type),
				Nullable: f.Nullable,
			})
		}
		files := make(querymeta.FileList, 0, len(sm.Files))
		for _, mf := range sm.Files {
			files = append(files, querymeta.FileID{ID: mf.ID, Records: mf.Records, OriginalSize: mf.OriginalSize})
		}
		s.Seed(ref.Org, ref.StreamType, ref.Name, schema, files)
		if sm.EnrichStart != nil {
			s.SeedEnrichStart(ref.Org, ref.Name, *sm.EnrichStart)
		}
	}
	return nil
}

func parseStreamKey(key string) (querymeta.StreamRef, error) {
	parts := splitThree(key)
	if parts == nil {
		return querymeta.StreamRef{}, fmt.Errorf("manifest stream key %q must be org/stream_type/name", key)
	}
	return querymeta.StreamRef{Org: parts[0], StreamType: querymeta.StreamType(parts[1]), Name: parts[2]}, nil
}

func splitThree(key string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			parts = append(parts, key[start:i])
			start = i + 1
		}
	}
	parts = append(parts, key[start:])
	if len(parts) != 3 {
		return nil
	}
	return parts
}

// Schemas implements driver.SchemaStore: it returns every stream registered
// under (org, streamType), keyed by stream name.
func (s *Store) Schemas(_ context.Context, org string, streamType querymeta.StreamType) (map[string]*querymeta.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := fmt.Sprintf("%s/%s/", org, streamType)
	out := make(map[string]*querymeta.Schema)
	for key, schema := range s.schemas {
		name, ok := trimPrefix(key, prefix)
		if ok {
			out[name] = schema
		}
	}
	return out, nil
}

func trimPrefix(s, prefix string) (string, bool) {
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return "", false
	}
	return s[len(prefix):], true
}

// QueryIDs implements cluster.FileListStore: it returns the full seeded
// file list for the stream, ignoring the time range (devstore's manifest
// has no per-file time bounds to filter on, matching querymeta.FileID).
func (s *Store) QueryIDs(_ context.Context, _, org string, streamType querymeta.StreamType, stream string, _ querymeta.TimeRange) (querymeta.FileList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files[streamKey(org, streamType, stream)], nil
}

// EnrichStart implements cluster.EnrichStartLookup. Streams with no seeded
// enrich start return the zero time, so the enrichment-table override
// range starts at the Unix epoch.
func (s *Store) EnrichStart(_ context.Context, org, stream string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enrich[org+"/"+stream], nil
}
