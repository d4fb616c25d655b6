// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package remotescan

import (
	"context"

	"github.com/tomtom215/querymesh/internal/querymeta"
)

// FileLister resolves a partition's assigned file IDs to a scan-size
// estimate, the same accounting devstore.Store already tracks for C4.
type FileLister interface {
	Schemas(ctx context.Context, org string, streamType querymeta.StreamType) (map[string]*querymeta.Schema, error)
}

// LoopbackExecutor is the single-node stand-in for a real querier RPC: it
// never leaves the process. The actual Arrow/Parquet scan engine behind a
// PartitionExecutor is out of scope for this repo (spec's C6 covers the
// scan transport, not the storage engine it carries); LoopbackExecutor
// reports the partition's assigned file count as its scan stats and
// otherwise yields no rows, so single-node deployments without a real
// storage backend still exercise the full compile/plan/collect pipeline.
type LoopbackExecutor struct {
	lister FileLister
}

// NewLoopbackExecutor builds a LoopbackExecutor. lister is currently unused
// beyond documenting the intended extension point for wiring a real local
// scan engine; accepting it keeps that substitution a one-file change.
func NewLoopbackExecutor(lister FileLister) *LoopbackExecutor {
	return &LoopbackExecutor{lister: lister}
}

// Execute reports the assigned files as scanned with zero rows and closes
// the stream immediately.
func (e *LoopbackExecutor) Execute(ctx context.Context, node querymeta.Node, req PartitionRequest) (<-chan StreamMessage, error) {
	out := make(chan StreamMessage, 1)
	out <- StreamMessage{
		Kind: KindScanStats,
		Stats: PartitionStats{
			ScanFiles: int64(len(req.FileIDs)),
		},
	}
	close(out)
	return out, nil
}
