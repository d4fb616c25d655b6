// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package services adapts long-running background loops into
// suture.Service implementations so internal/supervisor's tree can
// restart them on failure: a registry sweeper that drops stale
// pending-cancel placeholders, and a cache janitor that reclaims
// BadgerDB's value log on a schedule.
package services

import (
	"context"
	"time"

	"github.com/tomtom215/querymesh/internal/aggcache"
	"github.com/tomtom215/querymesh/internal/registry"
)

// RegistrySweepService wraps registry.Registry.RunSweeper as a
// suture.Service.
type RegistrySweepService struct {
	Registry *registry.Registry
	Interval time.Duration
	MaxAge   time.Duration
}

// NewRegistrySweepService returns a RegistrySweepService with the given
// sweep interval and pending-cancel max age.
func NewRegistrySweepService(reg *registry.Registry, interval, maxAge time.Duration) *RegistrySweepService {
	return &RegistrySweepService{Registry: reg, Interval: interval, MaxAge: maxAge}
}

// Serve implements suture.Service. It runs until ctx is done.
func (s *RegistrySweepService) Serve(ctx context.Context) error {
	s.Registry.RunSweeper(ctx, s.Interval, s.MaxAge)
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log output.
func (s *RegistrySweepService) String() string { return "registry-sweeper" }

// CacheJanitorService wraps aggcache.Cache.RunGC as a suture.Service.
type CacheJanitorService struct {
	Cache    *aggcache.Cache
	Interval time.Duration
}

// NewCacheJanitorService returns a CacheJanitorService that runs Badger's
// value-log GC every interval.
func NewCacheJanitorService(cache *aggcache.Cache, interval time.Duration) *CacheJanitorService {
	return &CacheJanitorService{Cache: cache, Interval: interval}
}

// Serve implements suture.Service. It runs until ctx is done.
func (s *CacheJanitorService) Serve(ctx context.Context) error {
	s.Cache.RunGC(ctx, s.Interval)
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log output.
func (s *CacheJanitorService) String() string { return "cache-janitor" }
