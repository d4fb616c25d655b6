// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package promql

import "regexp"

var labelNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// IsValidLabelName reports whether name is a legal Prometheus label name.
func IsValidLabelName(name string) bool {
	return labelNamePattern.MatchString(name)
}
