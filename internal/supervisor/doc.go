// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

/*
Package supervisor provides process supervision for the query engine using
suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of the process's long-running loops. It provides Erlang/OTP-style
supervision with automatic restart, failure isolation, and graceful
shutdown.

# Overview

The supervisor tree organizes services into three layers for failure
isolation:

	RootSupervisor ("querymesh")
	├── BackgroundSupervisor ("background-layer")
	│   ├── RegistrySweepService
	│   └── CacheJanitorService
	├── TransportSupervisor ("transport-layer")
	│   └── RemoteScan NATS listener (none added by cmd/queryengine)
	└── APISupervisor ("api-layer")
	    └── HTTP front door

This hierarchy ensures that:
  - A crash in the cache janitor doesn't affect query serving
  - A dropped NATS connection doesn't take down the HTTP front door
  - Each layer can restart independently

# Usage Example

Basic setup in cmd/queryengine/main.go:

	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    log.Fatal(err)
	}

	tree.AddBackgroundService(services.NewRegistrySweepService(reg, time.Minute, 10*time.Minute))
	tree.AddBackgroundService(services.NewCacheJanitorService(cache, 5*time.Minute))
	tree.AddAPIService(httpServerService)

	if err := tree.Serve(ctx); err != nil {
	    log.Printf("supervisor stopped: %v", err)
	}

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return nil for a clean stop, an error to be restarted, and return promptly
once ctx is canceled.

# See Also

  - internal/supervisor/services: service wrappers
  - github.com/thejerf/suture/v4: underlying library
*/
package supervisor
