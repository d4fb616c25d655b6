// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

//go:build nats

package remotescan

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServerConfig configures a self-contained NATS instance for
// single-node deployments that have no external NATS cluster to dial.
type EmbeddedServerConfig struct {
	Host     string
	Port     int
	StoreDir string
}

// EmbeddedServer wraps a nats-server/v2 process with the lifecycle a
// cmd/queryengine main loop needs: start, wait-ready, shut down.
// JetStream is left disabled since remote-scan framing (transport_nats.go)
// uses plain request-reply, not persistent streams.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer starts an embedded NATS server and blocks until it is
// ready for connections or 30s elapses.
func NewEmbeddedServer(cfg EmbeddedServerConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "querymesh-remotescan",
		Host:       cfg.Host,
		Port:       cfg.Port,
		StoreDir:   cfg.StoreDir,
		DontListen: false,
		MaxPayload: 8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}
	ns.ConfigureLogger()

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the URL NewNATSExecutor and node-side listeners should
// dial to reach this embedded server.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server, waiting for in-flight work or ctx cancellation,
// whichever comes first.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.server.WaitForShutdown()
		return nil
	}
}
