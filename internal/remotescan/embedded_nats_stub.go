// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

//go:build !nats

package remotescan

import (
	"context"
	"fmt"
)

// EmbeddedServerConfig mirrors the nats-enabled build's configuration shape
// so callers compile unchanged regardless of build tags.
type EmbeddedServerConfig struct {
	Host     string
	Port     int
	StoreDir string
}

// EmbeddedServer is a stub when NATS dependencies are not available.
// Build with -tags=nats to enable the real embedded server.
type EmbeddedServer struct{}

// NewEmbeddedServer returns an error when NATS dependencies are not available.
func NewEmbeddedServer(cfg EmbeddedServerConfig) (*EmbeddedServer, error) {
	return nil, fmt.Errorf("embedded NATS server not available: build with -tags=nats")
}

// ClientURL is a stub returning the empty string.
func (s *EmbeddedServer) ClientURL() string { return "" }

// Shutdown is a no-op stub.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error { return nil }
