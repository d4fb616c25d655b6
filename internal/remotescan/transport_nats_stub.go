// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

//go:build !nats

package remotescan

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/querymesh/internal/querymeta"
)

// NATSConfig mirrors the nats-enabled build's configuration shape so
// callers compile unchanged regardless of build tags.
type NATSConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	RequestTimeout  time.Duration
}

// NATSExecutor is a stub when NATS dependencies are not available.
// Build with -tags=nats to enable the real transport.
type NATSExecutor struct{}

// NewNATSExecutor returns an error when NATS dependencies are not available.
func NewNATSExecutor(cfg NATSConfig) (*NATSExecutor, error) {
	return nil, fmt.Errorf("remote scan NATS transport not available: build with -tags=nats")
}

// Execute is a stub that returns an error.
func (e *NATSExecutor) Execute(ctx context.Context, node querymeta.Node, req PartitionRequest) (<-chan StreamMessage, error) {
	return nil, fmt.Errorf("remote scan NATS transport not available: build with -tags=nats")
}

// Close is a no-op stub.
func (e *NATSExecutor) Close() {}
