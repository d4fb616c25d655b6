// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/querymesh/internal/aggcache"
	"github.com/tomtom215/querymesh/internal/registry"
)

func TestRegistrySweepServiceStopsOnCancel(t *testing.T) {
	svc := NewRegistrySweepService(registry.New(), time.Millisecond, time.Minute)
	assert.Equal(t, "registry-sweeper", svc.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

func TestCacheJanitorServiceStopsOnCancel(t *testing.T) {
	cache, err := aggcache.Open(filepath.Join(t.TempDir(), "aggcache"), time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	svc := NewCacheJanitorService(cache, time.Millisecond)
	assert.Equal(t, "cache-janitor", svc.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}
