// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package driver

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/tomtom215/querymesh/internal/querymeta"
)

// decodeRecordBatch turns one Arrow IPC stream-encoded RecordBatch (as
// carried in remotescan.StreamMessage.Batch) into decoded rows. This is the
// collector side of the "columnar-stream RPC" spec §4.6 step 4 describes;
// the wire encoding side lives with the remote worker that produced Batch.
func decodeRecordBatch(data []byte) ([]querymeta.Row, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open arrow ipc stream: %w", err)
	}
	defer reader.Release()

	var rows []querymeta.Row
	schema := reader.Schema()
	for reader.Next() {
		rec := reader.Record()
		for r := 0; r < int(rec.NumRows()); r++ {
			row := make(querymeta.Row, rec.NumCols())
			for c := 0; c < int(rec.NumCols()); c++ {
				row[schema.Field(c).Name] = cellValue(rec.Column(c), r)
			}
			rows = append(rows, row)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read arrow ipc stream: %w", err)
	}
	return rows, nil
}

// cellValue extracts row r of col as a plain Go value. Column types beyond
// this list (nested/list/struct columns) fall back to their string form;
// the query engine's stream schemas are flat (spec §3 "Schema").
func cellValue(col arrow.Array, r int) any {
	if col.IsNull(r) {
		return nil
	}
	switch v := col.(type) {
	case *array.Boolean:
		return v.Value(r)
	case *array.Int64:
		return v.Value(r)
	case *array.Int32:
		return int64(v.Value(r))
	case *array.Float64:
		return v.Value(r)
	case *array.Float32:
		return float64(v.Value(r))
	case *array.String:
		return v.Value(r)
	case *array.LargeString:
		return v.Value(r)
	case *array.Timestamp:
		unit := v.DataType().(*arrow.TimestampType).Unit
		t, err := v.Value(r).ToTime(unit)
		if err != nil {
			return int64(v.Value(r))
		}
		return t
	default:
		return fmt.Sprintf("%v", col.ValueStr(r))
	}
}
