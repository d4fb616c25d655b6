// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package querymeta

import "errors"

var (
	errStreamsEmpty         = errors.New("compiled sql: streams must be non-empty")
	errUnknownStreamRef     = errors.New("compiled sql: predicate references a stream not in Streams")
	errFieldNotInSchema     = errors.New("compiled sql: predicate field does not exist in its stream's schema")
	errIndexModeAggMismatch = errors.New("compiled sql: index optimize mode shape does not match HasAggregation")
)
