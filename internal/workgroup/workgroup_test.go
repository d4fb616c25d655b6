// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package workgroup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/querymesh/internal/qerrors"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

func TestClassifyBackgroundEventTypes(t *testing.T) {
	c := Classifier{LongScanBytesThreshold: 1 << 30}
	assert.Equal(t, ClassBackground, c.Classify(querymeta.Request{SearchEventType: querymeta.SearchEventReport}, 0))
	assert.Equal(t, ClassBackground, c.Classify(querymeta.Request{SearchEventType: querymeta.SearchEventAlert}, 0))
	assert.Equal(t, ClassBackground, c.Classify(querymeta.Request{SearchEventType: querymeta.SearchEventDerivedStream}, 0))
}

func TestClassifyShortVsLong(t *testing.T) {
	c := Classifier{LongScanBytesThreshold: 1000}
	assert.Equal(t, ClassShort, c.Classify(querymeta.Request{SearchEventType: querymeta.SearchEventUI}, 500))
	assert.Equal(t, ClassLong, c.Classify(querymeta.Request{SearchEventType: querymeta.SearchEventUI}, 5000))
}

func TestLimiterAcquireReleaseTracksCounters(t *testing.T) {
	lim := NewLimiter(map[Class]int{ClassShort: 1}, nil)

	guard, err := lim.Acquire(context.Background(), ClassShort)
	require.NoError(t, err)
	assert.Equal(t, int64(1), lim.Running(ClassShort))
	assert.GreaterOrEqual(t, guard.WaitInQueueMS, int64(0))

	guard.Release()
	assert.Equal(t, int64(0), lim.Running(ClassShort))
	guard.Release() // idempotent
}

func TestLimiterAcquireBlocksUntilSlotFreed(t *testing.T) {
	lim := NewLimiter(map[Class]int{ClassShort: 1}, nil)
	first, err := lim.Acquire(context.Background(), ClassShort)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		second, err := lim.Acquire(context.Background(), ClassShort)
		require.NoError(t, err)
		second.Release()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second acquire should not have completed before first released")
	default:
	}
	first.Release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed")
	}
}

func TestLimiterAcquireTimesOut(t *testing.T) {
	lim := NewLimiter(map[Class]int{ClassShort: 1}, nil)
	guard, err := lim.Acquire(context.Background(), ClassShort)
	require.NoError(t, err)
	defer guard.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = lim.Acquire(ctx, ClassShort)
	require.Error(t, err)
	assert.Equal(t, qerrors.KindSlotTimeout, qerrors.KindOf(err))
}
