// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package remotescan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/querymesh/internal/qerrors"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

type fakeExecutor struct {
	calls  int
	frames []StreamMessage
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, node querymeta.Node, req PartitionRequest) (<-chan StreamMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan StreamMessage, len(f.frames))
	for _, fr := range f.frames {
		ch <- fr
	}
	close(ch)
	return ch, nil
}

func querier(id string) querymeta.Node {
	return querymeta.Node{ID: id, Role: querymeta.RoleQuerier}
}

func drain(t *testing.T, batches <-chan []byte) [][]byte {
	t.Helper()
	var out [][]byte
	for b := range batches {
		out = append(out, b)
	}
	return out
}

func TestRunPartitionEmptyFileListShortCircuits(t *testing.T) {
	exec := &fakeExecutor{}
	op := &Operator{Executor: exec}

	res, err := op.RunPartition(context.Background(), querier("q1"), PartitionRequest{FileIDs: nil}, time.Second, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, drain(t, res.Batches))
	assert.Equal(t, 0, exec.calls, "empty file list must not reach the transport")
}

func TestRunPartitionStreamsBatchesAndMergesStats(t *testing.T) {
	exec := &fakeExecutor{frames: []StreamMessage{
		{Kind: KindRecordBatch, Batch: []byte("a")},
		{Kind: KindRecordBatch, Batch: []byte("b")},
		{Kind: KindScanStats, Stats: PartitionStats{NumRows: 2, ScanFiles: 1, ScanSize: 1024}},
		{Kind: KindMetrics, Metric: "scan.idle_time=3ms"},
	}}
	op := &Operator{Executor: exec}
	shared := &SharedStats{}
	metrics := &ClusterMetrics{}

	res, err := op.RunPartition(context.Background(), querier("q1"), PartitionRequest{FileIDs: []string{"f1"}}, time.Second, shared, metrics)
	require.NoError(t, err)

	batches := drain(t, res.Batches)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, batches)
	assert.Equal(t, PartitionStats{NumRows: 2, ScanFiles: 1, ScanSize: 1024}, shared.Snapshot())
	assert.Equal(t, []string{"scan.idle_time=3ms"}, metrics.Snapshot())
}

func TestRunPartitionSwallowsRecoverableErrors(t *testing.T) {
	exec := &fakeExecutor{err: qerrors.New(qerrors.KindRPCCancelled, "client went away")}
	op := &Operator{Executor: exec}

	res, err := op.RunPartition(context.Background(), querier("q1"), PartitionRequest{FileIDs: []string{"f1"}}, time.Second, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, drain(t, res.Batches))
	assert.NotEmpty(t, res.PartialNote)
}

func TestRunPartitionFailsOnUnrecoverableError(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("boom")}
	op := &Operator{Executor: exec}

	_, err := op.RunPartition(context.Background(), querier("q1"), PartitionRequest{FileIDs: []string{"f1"}}, time.Second, nil, nil)
	require.Error(t, err)
	assert.Equal(t, qerrors.KindRPCOther, qerrors.KindOf(err))
}

func TestRunPartitionEnrichModeBypassesEmptyShortCircuit(t *testing.T) {
	exec := &fakeExecutor{frames: []StreamMessage{{Kind: KindRecordBatch, Batch: []byte("x")}}}
	op := &Operator{Executor: exec}

	res, err := op.RunPartition(context.Background(), querier("q1"), PartitionRequest{EnrichMode: true}, time.Second, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, exec.calls, "enrich mode must not take the empty-file-list shortcut")
	assert.Equal(t, [][]byte{[]byte("x")}, drain(t, res.Batches))
}

func TestEffectiveDeadlineAppliesTighterRoleCap(t *testing.T) {
	op := &Operator{RoleCaps: RoleTimeoutCaps{querymeta.RoleQuerier: 5 * time.Second}}
	assert.Equal(t, 5*time.Second, op.EffectiveDeadline(30*time.Second, querymeta.RoleQuerier))
	assert.Equal(t, 2*time.Second, op.EffectiveDeadline(2*time.Second, querymeta.RoleQuerier))
	assert.Equal(t, 10*time.Second, op.EffectiveDeadline(10*time.Second, querymeta.RoleIngester))
}

func TestTrackPeakMemoryKeepsHighWaterMark(t *testing.T) {
	op := &Operator{}
	op.TrackPeakMemory(100)
	op.TrackPeakMemory(50)
	op.TrackPeakMemory(200)
	assert.Equal(t, int64(200), op.PeakMemory)
}

func TestPickEnrichPartitionStableAndInRange(t *testing.T) {
	assert.Equal(t, PickEnrichPartition(4, 9), PickEnrichPartition(4, 9))
	p := PickEnrichPartition(4, 9)
	assert.GreaterOrEqual(t, p, 0)
	assert.Less(t, p, 4)
	assert.Equal(t, -1, PickEnrichPartition(0, 5))
}
