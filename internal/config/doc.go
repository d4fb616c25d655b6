// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package config loads and validates the query engine's configuration.
//
// Loading order (Koanf v2), lowest to highest precedence:
//
//  1. Defaults: sensible built-in values for every tunable.
//  2. Config file: optional YAML file (config.yaml or $CONFIG_PATH).
//  3. Environment variables: override any setting, e.g. QM_QUERY_TIMEOUT=60s.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
package config
