// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package authz provides the Casbin-backed tenant scoping check that gates
// whether a request's user may read a given (org, stream_type, stream)
// triple, ahead of the C9 query pipeline (spec §4.1 "enforce tenant/stream
// scoping").
//
// # RBAC Model
//
// The embedded model combines role-based matching with glob-pattern
// fallback, so a policy subject can be either a role name (resolved through
// Casbin's role manager) or a wildcard pattern the caller's id matches
// directly:
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[role_definition]
//	g = _, _
//
//	[policy_effect]
//	e = some(where (p.eft == allow))
//
//	[matchers]
//	m = (g(r.sub, p.sub) || keyMatch(r.sub, p.sub)) && keyMatch(r.obj, p.obj) && keyMatch(r.act, p.act)
//
// # Policy Definition
//
// internal/sqlmodel.CasbinScoper enforces objects of the form
// "org/stream_type/stream" with the action always "read". The embedded
// policy.csv ships a permissive development default:
//
//	p, *, */*/*, read
//
// Production deployments point EnforcerConfig.PolicyPath at a file-adapter
// policy scoping each org to its own users, and .ModelPath at a stricter
// model if the glob fallback is undesired.
//
// # Usage Example
//
//	cfg := authz.DefaultEnforcerConfig()
//	enforcer, err := authz.NewEnforcer(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer enforcer.Close()
//
//	scoper := &sqlmodel.CasbinScoper{Enforcer: enforcer}
//	compiler := sqlmodel.New(scoper)
//
// # Caching
//
// Enforce results are cached by (subject, object, action) with a
// configurable TTL; AddPolicy/RemovePolicy/AddGroupingPolicy/
// RemoveGroupingPolicy and policy reload all invalidate the cache.
//
// # See Also
//
//   - internal/sqlmodel: the sole caller, via CasbinScoper
//   - github.com/casbin/casbin/v2: underlying authorization library
package authz
