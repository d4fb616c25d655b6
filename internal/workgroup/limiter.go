// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package workgroup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/querymesh/internal/qerrors"
)

// classState tracks one Class's admission slots: a buffered-channel
// semaphore bounds concurrency, and a token-bucket rate.Limiter smooths
// bursts of short-lived acquisitions (mirroring the teacher's per-key
// rate.Limiter pattern in internal/auth/middleware.go).
type classState struct {
	sem     chan struct{}
	limiter *rate.Limiter
	pending int64
	running int64
}

// Limiter is the C5 admission controller: every query acquires a slot in
// its classified work group before execution, and releases it (via the
// Guard) once execution finishes.
type Limiter struct {
	mu     sync.Mutex
	states map[Class]*classState

	// SlotCapacity bounds concurrent executions per Class.
	SlotCapacity map[Class]int
	// BurstRate, when set for a Class, additionally rate-limits new
	// acquisitions (requests/second); zero means unlimited.
	BurstRate map[Class]rate.Limit
}

// NewLimiter builds a Limiter with the given per-class slot capacities.
func NewLimiter(capacity map[Class]int, burst map[Class]rate.Limit) *Limiter {
	return &Limiter{
		states:       make(map[Class]*classState, len(capacity)),
		SlotCapacity: capacity,
		BurstRate:    burst,
	}
}

func (l *Limiter) stateFor(class Class) *classState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.states[class]; ok {
		return s
	}
	capacity := l.SlotCapacity[class]
	if capacity <= 0 {
		capacity = 1
	}
	s := &classState{sem: make(chan struct{}, capacity)}
	if lim := l.BurstRate[class]; lim > 0 {
		s.limiter = rate.NewLimiter(lim, capacity)
	}
	l.states[class] = s
	return s
}

// Guard is returned by Acquire; dropping it (calling Release) frees the
// slot. WaitInQueueMS records how long the caller spent blocked.
type Guard struct {
	state         *classState
	WaitInQueueMS int64
	released      int32
}

// Release frees the slot. Safe to call more than once.
func (g *Guard) Release() {
	if !atomic.CompareAndSwapInt32(&g.released, 0, 1) {
		return
	}
	atomic.AddInt64(&g.state.running, -1)
	<-g.state.sem
}

// Acquire blocks until a slot in class is available or ctx is done,
// whichever comes first. While blocked the query increments Pending(class);
// on acquisition Pending-- and Running++ (spec §4.5). A context deadline or
// cancellation while waiting surfaces as KindSlotTimeout.
func (l *Limiter) Acquire(ctx context.Context, class Class) (*Guard, error) {
	s := l.stateFor(class)
	atomic.AddInt64(&s.pending, 1)
	defer atomic.AddInt64(&s.pending, -1)

	start := time.Now()
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, qerrors.Wrap(qerrors.KindSlotTimeout, "rate limited waiting for work-group slot", err)
		}
	}

	select {
	case s.sem <- struct{}{}:
		atomic.AddInt64(&s.running, 1)
		return &Guard{state: s, WaitInQueueMS: time.Since(start).Milliseconds()}, nil
	case <-ctx.Done():
		return nil, qerrors.Wrap(qerrors.KindSlotTimeout, "timed out waiting for work-group slot", ctx.Err())
	}
}

// Pending returns the number of queries currently queued for class.
func (l *Limiter) Pending(class Class) int64 {
	return atomic.LoadInt64(&l.stateFor(class).pending)
}

// Running returns the number of queries currently executing in class.
func (l *Limiter) Running(class Class) int64 {
	return atomic.LoadInt64(&l.stateFor(class).running)
}
