// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package sqlmodel implements C1: parsing user SQL into a fully resolved
// querymeta.CompiledSQL. It runs a fixed sequence of AST rewriters ahead of
// extraction (spec §4.1), following the ordered-rewriter-chain shape of the
// teacher's internal/validation package, but operating on a SQL AST instead
// of HTTP payloads.
package sqlmodel

import (
	"context"
	"fmt"

	"github.com/tomtom215/querymesh/internal/logging"
	"github.com/tomtom215/querymesh/internal/qerrors"
	"github.com/tomtom215/querymesh/internal/querymeta"
	"github.com/tomtom215/querymesh/internal/sqlmodel/parse"
)

// CompileRequest carries everything C1 needs to produce a CompiledSQL.
type CompileRequest struct {
	SQL        string
	Org        string
	StreamType querymeta.StreamType
	UserID     string
	TimeRange  querymeta.TimeRange
	// Streams resolves every stream name the query references to its
	// schema. The compiler never performs schema lookups itself.
	Streams map[string]*querymeta.Schema
	// Placeholder is the configured "dashboard all" literal (§4.1, default
	// "_o2_all_").
	Placeholder string
	// DefaultLimit is applied when the query supplies no LIMIT.
	DefaultLimit int64
}

// TenantScoper enforces that (org, stream_type, stream) is permitted for
// user_id before the compiler proceeds to rewrite and extract. Production
// wires this to internal/authz's casbin enforcer; tests use a fake.
type TenantScoper interface {
	Allowed(ctx context.Context, userID, org string, streamType querymeta.StreamType, stream string) (bool, error)
}

// AllowAllScoper permits every stream; used where tenant scoping is enforced
// upstream of the compiler (e.g. in local/single-node mode).
type AllowAllScoper struct{}

// Allowed always returns true.
func (AllowAllScoper) Allowed(context.Context, string, string, querymeta.StreamType, string) (bool, error) {
	return true, nil
}

// Compiler is the stateless C1 entrypoint. A single Compiler is reused
// across requests; it holds no per-request state.
type Compiler struct {
	Scoper TenantScoper
}

// New returns a Compiler backed by scoper. A nil scoper allows every stream.
func New(scoper TenantScoper) *Compiler {
	if scoper == nil {
		scoper = AllowAllScoper{}
	}
	return &Compiler{Scoper: scoper}
}

// Compile runs the full §4.1 algorithm: parse, tenant-scope, rewrite,
// extract. Errors carry one of KindParseSQL, KindUnknownStream,
// KindUnauthorizedStream, KindUnsupportedConstruct,
// KindFullTextSearchFieldNotFound, or KindPlanBuild (when the compiled
// result fails Validate).
func (c *Compiler) Compile(ctx context.Context, req CompileRequest) (*querymeta.CompiledSQL, error) {
	log := logging.Ctx(ctx)

	stmt, err := parse.Parse(req.SQL)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindParseSQL, "failed to parse query", err)
	}

	ref, schema, err := resolveStream(req, stmt)
	if err != nil {
		return nil, err
	}

	allowed, err := c.Scoper.Allowed(ctx, req.UserID, req.Org, req.StreamType, ref.Name)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindUnauthorizedStream, "tenant scoping check failed", err)
	}
	if !allowed {
		return nil, qerrors.New(qerrors.KindUnauthorizedStream, fmt.Sprintf("user %q is not permitted to read stream %q", req.UserID, ref.Name))
	}

	streams := map[querymeta.StreamRef]*querymeta.Schema{ref: schema}

	if err := rewritePlaceholder(stmt, req.Placeholder); err != nil {
		return nil, err
	}
	addTimestampProjection(stmt, schema)
	if err := rewriteHistogram(stmt, req.TimeRange); err != nil {
		return nil, err
	}
	matchAllKeys, err := rewriteMatchAll(stmt, schema)
	if err != nil {
		return nil, err
	}

	compiled, err := extract(stmt, ref, streams, matchAllKeys, req)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("stream", ref.String()).Bool("has_aggregation", compiled.HasAggregation).Msg("compiled query")

	if err := compiled.Validate(); err != nil {
		return nil, qerrors.Wrap(qerrors.KindPlanBuild, "compiled sql failed validation", err)
	}
	return compiled, nil
}

func resolveStream(req CompileRequest, stmt *parse.SelectStmt) (querymeta.StreamRef, *querymeta.Schema, error) {
	schema, ok := req.Streams[stmt.From]
	if !ok {
		return querymeta.StreamRef{}, nil, qerrors.New(qerrors.KindUnknownStream, fmt.Sprintf("stream %q is not known in org %q", stmt.From, req.Org))
	}
	ref := querymeta.StreamRef{Org: req.Org, StreamType: req.StreamType, Name: stmt.From}
	return ref, schema, nil
}
