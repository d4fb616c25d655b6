// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package cluster

import (
	"context"
	"time"

	"github.com/tomtom215/querymesh/internal/querymeta"
)

// FileListStore resolves the file ids covering a stream's time range.
type FileListStore interface {
	QueryIDs(ctx context.Context, traceID, org string, streamType querymeta.StreamType, stream string, tr querymeta.TimeRange) (querymeta.FileList, error)
}

// EnrichStartLookup returns the earliest time an enrichment table's backing
// data covers, so its override range starts there instead of the query's
// requested start.
type EnrichStartLookup interface {
	EnrichStart(ctx context.Context, org, stream string) (time.Time, error)
}

// QueryFileLists resolves the file ids for every stream referenced by
// compiled, applying the enrich-table time-range override of spec §4.4
// ("If the stream variant is enrich/enrichment_tables, override the time
// range to (enrich_start(stream), now())").
func QueryFileLists(ctx context.Context, store FileListStore, enrich EnrichStartLookup, traceID string, compiled *querymeta.CompiledSQL, now func() time.Time) (map[querymeta.StreamRef]querymeta.FileList, error) {
	out := make(map[querymeta.StreamRef]querymeta.FileList, len(compiled.Streams))
	for ref := range compiled.Streams {
		tr := *compiled.TimeRange
		if ref.IsEnrichment() {
			start, err := enrich.EnrichStart(ctx, compiled.Org, ref.Name)
			if err != nil {
				return nil, err
			}
			tr = querymeta.TimeRange{
				StartUs: start.UnixMicro(),
				EndUs:   now().UnixMicro(),
			}
		}
		files, err := store.QueryIDs(ctx, traceID, compiled.Org, compiled.StreamType, ref.Name, tr)
		if err != nil {
			return nil, err
		}
		out[ref] = files
	}
	return out, nil
}
