// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package driver

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestBatch(t *testing.T, schema *arrow.Schema, build func(*array.RecordBuilder)) []byte {
	t.Helper()
	mem := memory.NewGoAllocator()
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()
	build(rb)
	rec := rb.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeRecordBatchRoundTrips(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	data := encodeTestBatch(t, schema, func(rb *array.RecordBuilder) {
		rb.Field(0).(*array.StringBuilder).AppendValues([]string{"a", "b"}, nil)
		rb.Field(1).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	})

	rows, err := decodeRecordBatch(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0]["name"])
	assert.Equal(t, int64(1), rows[0]["count"])
	assert.Equal(t, "b", rows[1]["name"])
	assert.Equal(t, int64(2), rows[1]["count"])
}

func TestDecodeRecordBatchHandlesNulls(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "v", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)

	data := encodeTestBatch(t, schema, func(rb *array.RecordBuilder) {
		rb.Field(0).(*array.Float64Builder).AppendValues([]float64{1.5, 0}, []bool{true, false})
	})

	rows, err := decodeRecordBatch(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1.5, rows[0]["v"])
	assert.Nil(t, rows[1]["v"])
}

func TestDecodeRecordBatchRejectsGarbage(t *testing.T) {
	_, err := decodeRecordBatch([]byte("not arrow ipc"))
	require.Error(t, err)
}
