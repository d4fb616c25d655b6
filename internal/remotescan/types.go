// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package remotescan implements C6: the per-partition RemoteScan RPC that
// fans a physical sub-plan out to the cluster's queriers and streams
// partial record batches, scan stats, and metrics back (spec §4.6).
package remotescan

import (
	"sync"

	"github.com/tomtom215/querymesh/internal/querymeta"
)

// MessageKind distinguishes the three message types multiplexed on a
// columnar-stream RPC connection (spec §4.6 step 4).
type MessageKind int

const (
	KindRecordBatch MessageKind = iota
	KindScanStats
	KindMetrics
)

// PartitionStats accumulates the per-partition (and, via Merge, the
// cluster-wide) scan accounting. Updates are commutative and
// monotonic-increasing, so concurrent merges are safe (spec §5 "Ordering
// guarantees").
type PartitionStats struct {
	NumRows   int64
	ScanFiles int64
	ScanSize  int64
}

// Merge folds other into s.
func (s *PartitionStats) Merge(other PartitionStats) {
	s.NumRows += other.NumRows
	s.ScanFiles += other.ScanFiles
	s.ScanSize += other.ScanSize
}

// StreamMessage is one frame of the columnar RPC's multiplexed stream.
type StreamMessage struct {
	Kind   MessageKind
	Batch  []byte // Arrow IPC-encoded RecordBatch, present when Kind == KindRecordBatch
	Stats  PartitionStats
	Metric string
}

// PartitionRequest is the per-partition FlightSearchRequest of spec §4.6
// step 2: the remote-scan descriptor specialized for one node's file-id
// assignment.
type PartitionRequest struct {
	TraceID           string
	Stream            string
	FileIDs           []string
	IdxFileIDs        []string
	IndexCondition    *querymeta.IndexCondition
	IndexOptimizeMode *querymeta.IndexOptimizeMode
	SuperCluster      bool
	EnrichMode        bool
	PhysicalPlan      []byte
	IsAnalyze         bool
}

// SharedStats is the mutex-protected cluster-wide accumulator scan-stats
// updates from every partition merge into (spec §5 "Shared resources").
type SharedStats struct {
	mu    sync.Mutex
	stats PartitionStats
}

func (s *SharedStats) Merge(p PartitionStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Merge(p)
}

func (s *SharedStats) Snapshot() PartitionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ClusterMetrics is the mutex-protected append-only metrics list every
// partition's Metrics frames are appended to.
type ClusterMetrics struct {
	mu      sync.Mutex
	entries []string
}

func (m *ClusterMetrics) Append(metric string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, metric)
}

func (m *ClusterMetrics) Snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	copy(out, m.entries)
	return out
}
