// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package remotescan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/querymesh/internal/logging"
	"github.com/tomtom215/querymesh/internal/qerrors"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// PartitionExecutor opens the columnar-stream RPC to node for req and
// returns a channel of multiplexed frames. Implementations close the
// channel when the stream ends (normally or on error) and must respect
// ctx cancellation.
type PartitionExecutor interface {
	Execute(ctx context.Context, node querymeta.Node, req PartitionRequest) (<-chan StreamMessage, error)
}

// RoleTimeoutCaps tightens the effective RPC deadline for roles that need
// tail-latency protection (spec §4.6 step 1: "queriers and ingesters may
// have tighter caps for UI search").
type RoleTimeoutCaps map[querymeta.Role]time.Duration

// Operator runs C6: per-partition RemoteScan execution, one
// gobreaker-wrapped circuit per destination node.
type Operator struct {
	Executor   PartitionExecutor
	RoleCaps   RoleTimeoutCaps
	PeakMemory int64 // bytes, atomic

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[interface{}]
}

// EffectiveDeadline is spec §4.6 step 1: min(query_timeout, role-specific
// cap).
func (o *Operator) EffectiveDeadline(queryTimeout time.Duration, role querymeta.Role) time.Duration {
	if cap, ok := o.RoleCaps[role]; ok && cap > 0 && cap < queryTimeout {
		return cap
	}
	return queryTimeout
}

func (o *Operator) breakerFor(nodeID string) *gobreaker.CircuitBreaker[interface{}] {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.breakers == nil {
		o.breakers = make(map[string]*gobreaker.CircuitBreaker[interface{}])
	}
	if b, ok := o.breakers[nodeID]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "remote_scan:" + nodeID,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	o.breakers[nodeID] = b
	return b
}

// PartitionResult is what one partition's RunPartition invocation yields:
// a stream of decoded record batches. RunPartition leaves Stats zero; the
// partition's ScanStats frames are merged into the caller's SharedStats as
// they arrive on the stream.
type PartitionResult struct {
	Batches     <-chan []byte
	Stats       PartitionStats
	PartialNote string
}

// RunPartition executes req against node and merges its ScanStats into
// stats and its Metrics into metrics, following spec §4.6's per-partition
// algorithm. On a recoverable RPC failure (Cancelled, DeadlineExceeded, or
// SearchParquetFileNotFound) it returns an empty batch stream plus a
// non-empty PartialNote instead of an error, leaving the decision of
// whether to mark the overall result partial to the caller.
func (o *Operator) RunPartition(ctx context.Context, node querymeta.Node, req PartitionRequest, queryTimeout time.Duration, stats *SharedStats, metrics *ClusterMetrics) (PartitionResult, error) {
	// Step 3: avoid the RPC round-trip entirely for an empty file list on
	// an ordinary querier partition.
	if node.IsQuerier() && !req.SuperCluster && !req.EnrichMode && len(req.FileIDs) == 0 {
		empty := make(chan []byte)
		close(empty)
		return PartitionResult{Batches: empty}, nil
	}

	deadline := o.EffectiveDeadline(queryTimeout, node.Role)
	rpcCtx, cancel := context.WithTimeout(ctx, deadline)

	started := time.Now()
	var rowCount int64
	localStats := PartitionStats{}

	breaker := o.breakerFor(node.ID)
	raw, err := breaker.Execute(func() (interface{}, error) {
		return o.Executor.Execute(rpcCtx, node, req)
	})
	if err != nil {
		cancel()
		return o.recoverOrFail(node, started, err)
	}
	frames := raw.(<-chan StreamMessage)

	out := make(chan []byte)
	go func() {
		defer cancel()
		defer close(out)
		defer func() {
			logging.Info().
				Str("node_id", node.ID).
				Int64("num_rows", localStats.NumRows).
				Int64("scan_files", localStats.ScanFiles).
				Int64("scan_size", localStats.ScanSize).
				Dur("elapsed", time.Since(started)).
				Msg("remote scan partition drained")
		}()
		for frame := range frames {
			switch frame.Kind {
			case KindRecordBatch:
				rowCount++
				localStats.NumRows++
				select {
				case out <- frame.Batch:
				case <-rpcCtx.Done():
					return
				}
			case KindScanStats:
				localStats.Merge(frame.Stats)
				if stats != nil {
					stats.Merge(frame.Stats)
				}
			case KindMetrics:
				if metrics != nil {
					metrics.Append(frame.Metric)
				}
			}
		}
	}()

	return PartitionResult{Batches: out}, nil
}

// recoverOrFail implements spec §4.6 step 6: Cancelled, DeadlineExceeded,
// and SearchParquetFileNotFound are swallowed into an empty stream plus a
// partial-error note; every other error fails the partition outright.
func (o *Operator) recoverOrFail(node querymeta.Node, started time.Time, err error) (PartitionResult, error) {
	kind := classifyRPCError(err)
	if qerrors.RecoverableAtPartition(kind) {
		empty := make(chan []byte)
		close(empty)
		logging.Info().Str("node_id", node.ID).Dur("elapsed", time.Since(started)).Err(err).Msg("remote scan partition recovered from partial failure")
		return PartitionResult{Batches: empty, PartialNote: err.Error()}, nil
	}
	return PartitionResult{}, qerrors.Wrap(qerrors.KindRPCOther, "remote scan partition failed", err)
}

func classifyRPCError(err error) qerrors.Kind {
	var qe *qerrors.Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return qerrors.KindRPCCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return qerrors.KindRPCDeadlineExceeded
	default:
		return qerrors.KindRPCOther
	}
}

// TrackPeakMemory records observed as the new peak if it exceeds the
// previous high-water mark.
func (o *Operator) TrackPeakMemory(observed int64) {
	for {
		cur := atomic.LoadInt64(&o.PeakMemory)
		if observed <= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&o.PeakMemory, cur, observed) {
			return
		}
	}
}

// PickEnrichPartition chooses exactly one partition index to tag
// enrich_mode=true, stable for a given plan (spec §4.6 "Enrich mode").
// seed ties the choice to the plan so repeated calls for the same plan
// select the same partition.
func PickEnrichPartition(partitionCount int, seed int64) int {
	if partitionCount <= 0 {
		return -1
	}
	if seed < 0 {
		seed = -seed
	}
	return int(seed % int64(partitionCount))
}
