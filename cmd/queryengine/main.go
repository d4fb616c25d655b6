// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package main is the entry point for the query engine's single-node
// binary: a process that compiles, plans, and executes tenant-scoped SQL
// over log/metric/trace/enrichment streams (spec §1), fronted by a thin
// chi HTTP API.
//
// # Application Architecture
//
// The binary initializes components in the following order:
//
//  1. Configuration: Koanf v2, layered env vars over an optional config file.
//  2. Logging: zerolog, configured from Config.Logging.
//  3. Authorization: a Casbin enforcer gating tenant/stream access (C0.5).
//  4. Storage: internal/devstore seeds schemas, file lists, and enrichment
//     start times for local development and single-node deployments.
//  5. Driver: C1-C9 wired into one *driver.Driver.
//  6. HTTP: internal/httpapi's chi router, served under the supervisor tree.
//
// # Build Tags
//
//	go build -tags nats ./cmd/queryengine   # enables the NATS remote-scan transport
//
// Without the nats tag, RemoteScan falls back to an in-process executor
// suitable for single-node deployments where there is no remote querier to
// reach over the network.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server stops
// accepting new connections, in-flight requests are given 10 seconds to
// complete, and the embedded NATS server (when enabled) shuts down last.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/querymesh/internal/aggcache"
	"github.com/tomtom215/querymesh/internal/authz"
	"github.com/tomtom215/querymesh/internal/cardinality"
	"github.com/tomtom215/querymesh/internal/cluster"
	"github.com/tomtom215/querymesh/internal/config"
	"github.com/tomtom215/querymesh/internal/devstore"
	"github.com/tomtom215/querymesh/internal/driver"
	"github.com/tomtom215/querymesh/internal/httpapi"
	"github.com/tomtom215/querymesh/internal/logging"
	"github.com/tomtom215/querymesh/internal/querymeta"
	"github.com/tomtom215/querymesh/internal/registry"
	"github.com/tomtom215/querymesh/internal/remotescan"
	"github.com/tomtom215/querymesh/internal/sqlmodel"
	"github.com/tomtom215/querymesh/internal/supervisor"
	"github.com/tomtom215/querymesh/internal/supervisor/services"
	"github.com/tomtom215/querymesh/internal/workgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("node_role", cfg.Node.Role).
		Str("node_id", cfg.Node.ID).
		Bool("local_mode", cfg.Node.LocalMode).
		Msg("starting query engine")

	enforcer, err := authz.NewEnforcer(context.Background(), &authz.EnforcerConfig{
		ModelPath:      cfg.Authz.ModelPath,
		PolicyPath:     cfg.Authz.PolicyPath,
		CacheEnabled:   cfg.Authz.CacheEnabled,
		CacheTTL:       cfg.Authz.CacheTTL,
		AutoReload:     cfg.Authz.AutoReload,
		ReloadInterval: cfg.Authz.ReloadInterval,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize authorization enforcer")
	}
	defer enforcer.Close()

	store := devstore.New()

	localNode := querymeta.Node{
		ID:        cfg.Node.ID,
		Name:      cfg.Node.Name,
		Role:      querymeta.RoleSingle,
		RoleGroup: querymeta.RoleGroupInteractive,
		GRPCAddr:  cfg.Node.GRPCAddr,
		Region:    cfg.Node.Region,
		Cluster:   cfg.Node.Cluster,
		CPUNum:    cfg.Node.CPUNum,
	}
	directory := &cluster.NodeDirectory{
		Dir:       cluster.StaticDirectory{localNode},
		LocalMode: true,
		LocalNode: localNode,
	}

	reg := registry.New()

	limiter := workgroup.NewLimiter(
		map[workgroup.Class]int{
			workgroup.ClassShort:      64,
			workgroup.ClassLong:       8,
			workgroup.ClassBackground: 4,
		},
		map[workgroup.Class]rate.Limit{
			workgroup.ClassShort: 0,
		},
	)

	var aggCache *aggcache.Cache
	if cfg.Cache.AggDir != "" {
		aggCache, err = aggcache.Open(cfg.Cache.AggDir, cfg.Cache.AggWatermark)
		if err != nil {
			logging.Warn().Err(err).Msg("failed to open aggregation cache, result caching disabled")
		}
	}

	var cardinalityCache *cardinality.Cache
	if cfg.Cache.CardinalityMaxItems > 0 {
		cardinalityCache, err = cardinality.New(cfg.Cache.CardinalityMaxItems, func(ctx context.Context, key cardinality.Key) (int64, error) {
			schemas, err := store.Schemas(ctx, key.Org, key.StreamType)
			if err != nil {
				return 0, err
			}
			if _, ok := schemas[key.Stream]; !ok {
				return 0, fmt.Errorf("unknown stream %s/%s/%s", key.Org, key.StreamType, key.Stream)
			}
			return 0, nil
		})
		if err != nil {
			logging.Warn().Err(err).Msg("failed to open cardinality cache, bucket-width estimation disabled")
		}
	}

	var executor remotescan.PartitionExecutor
	var embeddedNATS *remotescan.EmbeddedServer
	if cfg.NATS.EmbeddedServer {
		embeddedNATS, err = remotescan.NewEmbeddedServer(remotescan.EmbeddedServerConfig{
			Host:     "127.0.0.1",
			StoreDir: cfg.NATS.StoreDir,
		})
		if err != nil {
			logging.Warn().Err(err).Msg("embedded NATS server unavailable, falling back to loopback remote-scan executor")
		}
	}
	if embeddedNATS != nil {
		natsExecutor, err := remotescan.NewNATSExecutor(remotescan.NATSConfig{
			URL:            embeddedNATS.ClientURL(),
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			RequestTimeout: cfg.NATS.RequestTimeout,
		})
		if err != nil {
			logging.Warn().Err(err).Msg("failed to connect remote-scan NATS executor, falling back to loopback executor")
		} else {
			executor = natsExecutor
			defer natsExecutor.Close()
		}
	}
	if executor == nil {
		executor = remotescan.NewLoopbackExecutor(store)
	}

	operator := &remotescan.Operator{
		Executor: executor,
		RoleCaps: remotescan.RoleTimeoutCaps{
			querymeta.RoleQuerier: cfg.Query.QuerierTimeout,
		},
	}

	scoper := &sqlmodel.CasbinScoper{Enforcer: enforcer}
	compiler := sqlmodel.New(scoper)

	partitionPolicy := cluster.PolicyByHash
	switch cfg.Cluster.PartitionPolicy {
	case "count":
		partitionPolicy = cluster.PolicyByCount
	case "bytes":
		partitionPolicy = cluster.PolicyByBytes
	}

	d := &driver.Driver{
		Compiler:     compiler,
		Schemas:      store,
		FileStore:    store,
		EnrichLookup: store,
		Directory:    directory,
		Classifier:   workgroup.Classifier{LongScanBytesThreshold: cfg.Query.GroupBaseSpeedBPS * cfg.Query.PartitionBySecs},
		Limiter:      limiter,
		Operator:     operator,
		Registry:     reg,
		AggCache:     aggCache,
		Cardinality:  cardinalityCache,
		Cfg: driver.Config{
			Placeholder:               cfg.Query.DashboardPlaceholder,
			DefaultLimit:              cfg.Query.DefaultLimit,
			QueryTimeout:              cfg.Query.Timeout,
			QuerierTimeout:            cfg.Query.QuerierTimeout,
			IngesterTimeout:           cfg.Query.IngesterTimeout,
			CPUCount:                  cfg.Node.CPUNum,
			PerCPUSpeedBytesPerSec:    cfg.Query.GroupBaseSpeedBPS,
			TargetPartitionSeconds:    cfg.Query.PartitionBySecs,
			MinPartitionSeconds:       cfg.Query.MinPartitionSeconds,
			MinStepUs:                 cfg.Query.MinStepSeconds * 1_000_000,
			JoinRightSideLimit:        cfg.Query.DefaultLimitJoinRight,
			PartitionPolicy:           partitionPolicy,
			BroadcastJoinEnabled:      cfg.Feature.BroadcastJoinEnabled,
			BroadcastJoinMaxRows:      cfg.Query.BroadcastJoinMaxRows,
			StreamingAggsEnabled:      cfg.Feature.QueryStreamingAggs,
			SingleNodeOptimizeEnabled: cfg.Feature.SingleNodeOptimizeEnable,
			CacheBaseBucketWidth:      cfg.Cache.AggMaxAge,
			CacheWatermark:            cfg.Cache.AggWatermark,
		},
	}

	router := httpapi.NewRouter(d, httpapi.DefaultConfig())
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	tree.AddBackgroundService(services.NewRegistrySweepService(reg, time.Minute, 10*time.Minute))
	if aggCache != nil {
		tree.AddBackgroundService(services.NewCacheJanitorService(aggCache, time.Minute))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if embeddedNATS != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := embeddedNATS.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("error shutting down embedded NATS server")
		}
		shutdownCancel()
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
	}

	logging.Info().Msg("query engine stopped gracefully")
}
