// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/querymesh/internal/cluster"
	"github.com/tomtom215/querymesh/internal/qerrors"
	"github.com/tomtom215/querymesh/internal/querymeta"
	"github.com/tomtom215/querymesh/internal/registry"
	"github.com/tomtom215/querymesh/internal/remotescan"
	"github.com/tomtom215/querymesh/internal/sqlmodel"
	"github.com/tomtom215/querymesh/internal/workgroup"
)

// fakeSchemaStore resolves every query against one fixed stream->schema map.
type fakeSchemaStore struct {
	schemas map[string]*querymeta.Schema
}

func (f fakeSchemaStore) Schemas(context.Context, string, querymeta.StreamType) (map[string]*querymeta.Schema, error) {
	return f.schemas, nil
}

func logsSchema() *querymeta.Schema {
	return &querymeta.Schema{
		Fields: []querymeta.Field{
			{Name: "_timestamp", Type: querymeta.FieldTypeInt64},
			{Name: "name", Type: querymeta.FieldTypeUtf8},
		},
		TimestampField: querymeta.DefaultTimestampField,
		Settings: querymeta.Settings{
			FullTextSearchFields: []string{"name"},
		},
	}
}

type fakeFileListStore struct {
	files map[string]querymeta.FileList
}

func (f fakeFileListStore) QueryIDs(_ context.Context, _, _ string, _ querymeta.StreamType, stream string, _ querymeta.TimeRange) (querymeta.FileList, error) {
	return f.files[stream], nil
}

type fakeEnrichLookup struct{}

func (fakeEnrichLookup) EnrichStart(context.Context, string, string) (time.Time, error) {
	return time.Time{}, nil
}

// fakeExecutor delegates to fn so each test can shape RunPartition's
// behavior (batches, errors, blocking-until-cancelled) per node.
type fakeExecutor struct {
	fn func(ctx context.Context, node querymeta.Node, req remotescan.PartitionRequest) (<-chan remotescan.StreamMessage, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, node querymeta.Node, req remotescan.PartitionRequest) (<-chan remotescan.StreamMessage, error) {
	return f.fn(ctx, node, req)
}

func oneRowBatch(t *testing.T, value int64) []byte {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{{Name: "v", Type: arrow.PrimitiveTypes.Int64}}, nil)
	return encodeTestBatch(t, schema, func(rb *array.RecordBuilder) {
		rb.Field(0).(*array.Int64Builder).Append(value)
	})
}

// testDriver wires a Driver suitable for Execute tests: one querier per
// entry in nodes, a file list store backed by files, and exec standing in
// for the cluster's remote-scan transport.
func testDriver(nodes []querymeta.Node, files map[string]querymeta.FileList, exec remotescan.PartitionExecutor, configure func(*Config)) *Driver {
	cfg := Config{
		Placeholder:               "_o2_all_",
		DefaultLimit:              1000,
		QueryTimeout:              5 * time.Second,
		CPUCount:                  2,
		PartitionPolicy:           cluster.PolicyByCount,
		SingleNodeOptimizeEnabled: true,
		JoinRightSideLimit:        50000,
	}
	if configure != nil {
		configure(&cfg)
	}
	return &Driver{
		Compiler:     sqlmodel.New(nil),
		Schemas:      fakeSchemaStore{schemas: map[string]*querymeta.Schema{"logs": logsSchema()}},
		FileStore:    fakeFileListStore{files: files},
		EnrichLookup: fakeEnrichLookup{},
		Directory:    &cluster.NodeDirectory{Dir: cluster.StaticDirectory(nodes)},
		Classifier:   workgroup.Classifier{LongScanBytesThreshold: 1 << 40},
		Limiter: workgroup.NewLimiter(map[workgroup.Class]int{
			workgroup.ClassShort:      10,
			workgroup.ClassLong:       10,
			workgroup.ClassBackground: 10,
		}, nil),
		Operator: &remotescan.Operator{Executor: exec},
		Registry: registry.New(),
		Cfg:      cfg,
	}
}

func baseRequest(sql string) querymeta.Request {
	return querymeta.Request{
		TraceID:    "trace-1",
		Org:        "acme",
		StreamType: querymeta.StreamTypeLogs,
		SQL:        sql,
		TimeRange:  querymeta.TimeRange{StartUs: 0, EndUs: 3_600_000_000},
	}
}

func querier(id string) querymeta.Node {
	return querymeta.Node{ID: id, Role: querymeta.RoleQuerier}
}

func TestExecute_ValidatesRequest(t *testing.T) {
	d := testDriver([]querymeta.Node{querier("q1")}, nil, &fakeExecutor{}, nil)

	cases := []struct {
		name string
		req  querymeta.Request
		kind qerrors.Kind
	}{
		{"missing trace id", querymeta.Request{Org: "acme", SQL: "SELECT 1", TimeRange: querymeta.TimeRange{EndUs: 1}}, qerrors.KindUnsupportedConstruct},
		{"missing org", querymeta.Request{TraceID: "t1", SQL: "SELECT 1", TimeRange: querymeta.TimeRange{EndUs: 1}}, qerrors.KindUnsupportedConstruct},
		{"missing sql", querymeta.Request{TraceID: "t1", Org: "acme", TimeRange: querymeta.TimeRange{EndUs: 1}}, qerrors.KindParseSQL},
		{"empty time range", querymeta.Request{TraceID: "t1", Org: "acme", SQL: "SELECT 1"}, qerrors.KindUnsupportedConstruct},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Execute(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.kind, qerrors.KindOf(err))
		})
	}
}

func TestExecute_SingleNodeHappyPath(t *testing.T) {
	files := map[string]querymeta.FileList{
		"logs": {{ID: 1, Records: 5, OriginalSize: 1000}, {ID: 2, Records: 5, OriginalSize: 1000}},
	}
	exec := &fakeExecutor{fn: func(ctx context.Context, node querymeta.Node, req remotescan.PartitionRequest) (<-chan remotescan.StreamMessage, error) {
		ch := make(chan remotescan.StreamMessage, 1)
		ch <- remotescan.StreamMessage{Kind: remotescan.KindScanStats, Stats: remotescan.PartitionStats{NumRows: 5, ScanFiles: 2, ScanSize: 2000}}
		close(ch)
		return ch, nil
	}}
	d := testDriver([]querymeta.Node{querier("q1")}, files, exec, nil)

	resp, err := d.Execute(context.Background(), baseRequest(`SELECT * FROM logs WHERE name = 'x' LIMIT 5`))
	require.NoError(t, err)
	assert.False(t, resp.IsPartial)
	assert.Equal(t, int64(5), resp.ScanRecords)
	assert.Equal(t, int64(2), resp.ScanFiles)
	assert.Equal(t, int64(2000), resp.ScanSize)
	assert.Empty(t, resp.Hits)
}

func TestExecute_ClusterModeFansOutAcrossNodes(t *testing.T) {
	files := map[string]querymeta.FileList{
		"logs": {{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
	}
	var mu sync.Mutex
	seen := map[string]bool{}
	exec := &fakeExecutor{fn: func(ctx context.Context, node querymeta.Node, req remotescan.PartitionRequest) (<-chan remotescan.StreamMessage, error) {
		mu.Lock()
		seen[node.ID] = true
		mu.Unlock()
		ch := make(chan remotescan.StreamMessage, 1)
		ch <- remotescan.StreamMessage{Kind: remotescan.KindRecordBatch, Batch: oneRowBatch(t, 1)}
		close(ch)
		return ch, nil
	}}
	d := testDriver([]querymeta.Node{querier("q1"), querier("q2")}, files, exec, func(cfg *Config) {
		cfg.SingleNodeOptimizeEnabled = false
	})

	resp, err := d.Execute(context.Background(), baseRequest(`SELECT * FROM logs WHERE name = 'x'`))
	require.NoError(t, err)
	assert.False(t, resp.IsPartial)
	assert.Equal(t, int64(2), resp.Total)
	assert.True(t, seen["q1"] && seen["q2"], "both nodes should have been scanned")
}

func TestExecute_PartitionErrorDegradesToPartialNote(t *testing.T) {
	files := map[string]querymeta.FileList{
		"logs": {{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
	}
	exec := &fakeExecutor{fn: func(ctx context.Context, node querymeta.Node, req remotescan.PartitionRequest) (<-chan remotescan.StreamMessage, error) {
		if node.ID == "q1" {
			return nil, errors.New("transport blew up")
		}
		ch := make(chan remotescan.StreamMessage, 1)
		ch <- remotescan.StreamMessage{Kind: remotescan.KindRecordBatch, Batch: oneRowBatch(t, 1)}
		close(ch)
		return ch, nil
	}}
	d := testDriver([]querymeta.Node{querier("q1"), querier("q2")}, files, exec, func(cfg *Config) {
		cfg.SingleNodeOptimizeEnabled = false
	})

	resp, err := d.Execute(context.Background(), baseRequest(`SELECT * FROM logs WHERE name = 'x'`))
	require.NoError(t, err)
	assert.True(t, resp.IsPartial)
	require.NotEmpty(t, resp.FunctionError)
	assert.Equal(t, int64(1), resp.Total, "only the healthy partition's row should survive")
}

func TestExecute_TimeoutAbortsRequest(t *testing.T) {
	exec := &fakeExecutor{fn: func(ctx context.Context, node querymeta.Node, req remotescan.PartitionRequest) (<-chan remotescan.StreamMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	files := map[string]querymeta.FileList{"logs": {{ID: 1}}}
	d := testDriver([]querymeta.Node{querier("q1")}, files, exec, func(cfg *Config) {
		cfg.QueryTimeout = 30 * time.Millisecond
	})

	_, err := d.Execute(context.Background(), baseRequest(`SELECT * FROM logs WHERE name = 'x'`))
	require.Error(t, err)
	assert.Equal(t, qerrors.KindSearchTimeout, qerrors.KindOf(err))
}

func TestExecute_CancelViaRegistryAbortsRequest(t *testing.T) {
	exec := &fakeExecutor{fn: func(ctx context.Context, node querymeta.Node, req remotescan.PartitionRequest) (<-chan remotescan.StreamMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	files := map[string]querymeta.FileList{"logs": {{ID: 1}}}
	d := testDriver([]querymeta.Node{querier("q1")}, files, exec, func(cfg *Config) {
		cfg.QueryTimeout = 5 * time.Second
	})

	var wg sync.WaitGroup
	var err error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err = d.Execute(context.Background(), baseRequest(`SELECT * FROM logs WHERE name = 'x'`))
	}()

	time.Sleep(20 * time.Millisecond)
	d.Registry.Cancel("trace-1")
	wg.Wait()

	require.Error(t, err)
	assert.Equal(t, qerrors.KindSearchCancelled, qerrors.KindOf(err))
}

func TestExecute_DefaultLimitAdvisoryWhenNoExplicitSize(t *testing.T) {
	files := map[string]querymeta.FileList{"logs": {{ID: 1}}}
	exec := &fakeExecutor{fn: func(ctx context.Context, node querymeta.Node, req remotescan.PartitionRequest) (<-chan remotescan.StreamMessage, error) {
		ch := make(chan remotescan.StreamMessage, 1)
		ch <- remotescan.StreamMessage{Kind: remotescan.KindRecordBatch, Batch: oneRowBatch(t, 1)}
		close(ch)
		return ch, nil
	}}
	d := testDriver([]querymeta.Node{querier("q1")}, files, exec, func(cfg *Config) {
		cfg.DefaultLimit = 0 // 0 disables the advisory in Execute; the helper is exercised directly below
	})

	req := baseRequest(`SELECT * FROM logs WHERE name = 'x'`)
	resp, err := d.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.IsPartial, "default limit of 0 must disable the advisory entirely")

	applyDefaultLimitAdvisory(&resp, req, 0)
	assert.Empty(t, resp.FunctionError)

	resp.Total = 5
	applyDefaultLimitAdvisory(&resp, req, 2)
	assert.True(t, resp.IsPartial)
	require.Len(t, resp.FunctionError, 1)

	req.Size = 10
	resp.IsPartial = false
	resp.FunctionError = nil
	applyDefaultLimitAdvisory(&resp, req, 2)
	assert.False(t, resp.IsPartial, "an explicit size must suppress the advisory")
}

func TestEffectiveQueryTimeout(t *testing.T) {
	d := &Driver{Cfg: Config{QueryTimeout: time.Minute}}

	assert.Equal(t, time.Minute, d.effectiveQueryTimeout(querymeta.Request{}))
	assert.Equal(t, 10*time.Second, d.effectiveQueryTimeout(querymeta.Request{TimeoutSeconds: 10}))
	assert.Equal(t, time.Minute, d.effectiveQueryTimeout(querymeta.Request{TimeoutSeconds: 120}), "a request timeout may only tighten, never loosen, the configured default")

	noDefault := &Driver{}
	assert.Equal(t, time.Minute, noDefault.effectiveQueryTimeout(querymeta.Request{}))
}

func TestRoleGroupFor(t *testing.T) {
	assert.Equal(t, querymeta.RoleGroupBackground, roleGroupFor(querymeta.SearchEventReport))
	assert.Equal(t, querymeta.RoleGroupBackground, roleGroupFor(querymeta.SearchEventDerivedStream))
	assert.Equal(t, querymeta.RoleGroupBackground, roleGroupFor(querymeta.SearchEventAlert))
	assert.Equal(t, querymeta.RoleGroupInteractive, roleGroupFor(querymeta.SearchEventUI))
	assert.Equal(t, querymeta.RoleGroupInteractive, roleGroupFor(""))
}
