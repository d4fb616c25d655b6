// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package sqlmodel

import (
	"context"
	"fmt"

	"github.com/tomtom215/querymesh/internal/authz"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// CasbinScoper backs TenantScoper with the query engine's casbin enforcer.
// The enforced object is "org/stream_type/stream" and the action is always
// "read", matching the teacher's authz.Enforcer model of (subject, object,
// action) triples.
type CasbinScoper struct {
	Enforcer *authz.Enforcer
}

// Allowed reports whether userID may read the given stream.
func (s *CasbinScoper) Allowed(_ context.Context, userID, org string, streamType querymeta.StreamType, stream string) (bool, error) {
	object := fmt.Sprintf("%s/%s/%s", org, streamType, stream)
	return s.Enforcer.Enforce(userID, object, "read")
}
