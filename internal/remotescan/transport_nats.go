// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

//go:build nats

package remotescan

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/querymesh/internal/logging"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// wireFrame is the envelope carried over the NATS reply subject: one
// StreamMessage plus a Final marker closing the partition's stream. Gob is
// used rather than Arrow IPC framing directly since the transport only
// needs to move the already-encoded Batch bytes plus small stats/metric
// payloads; the Arrow encoding itself happens one layer up.
type wireFrame struct {
	Msg   StreamMessage
	Final bool
}

// NATSConfig mirrors the connection-resilience options the teacher's
// eventprocessor publisher uses (retry-on-connect, bounded reconnects,
// reconnect buffering).
type NATSConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	RequestTimeout  time.Duration
}

// NATSExecutor implements PartitionExecutor as a NATS request-stream: the
// request is published to "querymesh.remotescan.<node_id>" with a private
// inbox as the reply subject, and the remote node streams wireFrame
// envelopes back to that inbox until Final is set.
type NATSExecutor struct {
	conn    *natsgo.Conn
	timeout time.Duration
}

// NewNATSExecutor dials the NATS cluster with the teacher's reconnection
// handling (DisconnectErrHandler/ReconnectHandler/ErrorHandler).
func NewNATSExecutor(cfg NATSConfig) (*NATSExecutor, error) {
	opts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("remote scan transport disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("remote scan transport reconnected")
		}),
		natsgo.ErrorHandler(func(nc *natsgo.Conn, sub *natsgo.Subscription, err error) {
			subj := ""
			if sub != nil {
				subj = sub.Subject
			}
			logging.Error().Err(err).Str("subject", subj).Msg("remote scan transport error")
		}),
	}

	conn, err := natsgo.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect remote scan transport: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NATSExecutor{conn: conn, timeout: timeout}, nil
}

func subjectFor(node querymeta.Node) string {
	return "querymesh.remotescan." + node.ID
}

// Execute publishes req to node's subject and returns a channel fed by the
// reply-subject subscription until a Final frame arrives, ctx is done, or
// the subscription errors.
func (e *NATSExecutor) Execute(ctx context.Context, node querymeta.Node, req PartitionRequest) (<-chan StreamMessage, error) {
	inbox := natsgo.NewInbox()
	sub, err := e.conn.SubscribeSync(inbox)
	if err != nil {
		return nil, fmt.Errorf("subscribe remote scan inbox: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(req); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("encode partition request: %w", err)
	}

	if err := e.conn.PublishRequest(subjectFor(node), inbox, buf.Bytes()); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("publish remote scan request: %w", err)
	}

	out := make(chan StreamMessage)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()

		deadline, hasDeadline := ctx.Deadline()
		perMsgTimeout := e.timeout
		for {
			remaining := perMsgTimeout
			if hasDeadline {
				if left := time.Until(deadline); left < remaining {
					remaining = left
				}
			}
			if remaining <= 0 {
				return
			}

			msg, err := sub.NextMsg(remaining)
			if err != nil {
				if err != natsgo.ErrTimeout {
					logging.Warn().Str("node_id", node.ID).Err(err).Msg("remote scan stream ended with error")
				}
				return
			}

			var frame wireFrame
			if err := gob.NewDecoder(bytes.NewReader(msg.Data)).Decode(&frame); err != nil {
				logging.Warn().Str("node_id", node.ID).Err(err).Msg("remote scan frame decode failed")
				return
			}

			select {
			case out <- frame.Msg:
			case <-ctx.Done():
				return
			}

			if frame.Final {
				return
			}
		}
	}()

	return out, nil
}

// Close closes the underlying NATS connection without draining it.
func (e *NATSExecutor) Close() {
	e.conn.Close()
}
