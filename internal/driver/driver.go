// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package driver implements C9: the single entry point that wires C1-C8
// together into one request/response cycle (spec §4.9). It owns nothing of
// its own algorithmically -- every real decision (compile, plan, partition,
// admit, scan, cache) is delegated to the package that implements it. The
// driver's job is sequencing, racing collection against timeout/cancel, and
// assembling the final querymeta.Response.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tomtom215/querymesh/internal/aggcache"
	"github.com/tomtom215/querymesh/internal/cardinality"
	"github.com/tomtom215/querymesh/internal/cluster"
	"github.com/tomtom215/querymesh/internal/logging"
	"github.com/tomtom215/querymesh/internal/logicalplan"
	"github.com/tomtom215/querymesh/internal/metrics"
	"github.com/tomtom215/querymesh/internal/physicalplan"
	"github.com/tomtom215/querymesh/internal/planmodel"
	"github.com/tomtom215/querymesh/internal/qerrors"
	"github.com/tomtom215/querymesh/internal/querymeta"
	"github.com/tomtom215/querymesh/internal/registry"
	"github.com/tomtom215/querymesh/internal/remotescan"
	"github.com/tomtom215/querymesh/internal/sqlmodel"
	"github.com/tomtom215/querymesh/internal/workgroup"
)

// SchemaStore resolves every stream name known to (org, streamType) to its
// schema, so the compiler never has to reach into storage itself.
type SchemaStore interface {
	Schemas(ctx context.Context, org string, streamType querymeta.StreamType) (map[string]*querymeta.Schema, error)
}

// Config carries the environment/config keys spec §6 "Environment / config"
// lists that the driver itself consumes (the rest are owned by the packages
// they configure).
type Config struct {
	Placeholder               string // dashboard_placeholder, default "_o2_all_"
	DefaultLimit              int64  // query_default_limit
	QueryTimeout              time.Duration
	QuerierTimeout            time.Duration
	IngesterTimeout           time.Duration
	CPUCount                  int
	PerCPUSpeedBytesPerSec    int64
	TargetPartitionSeconds    int64
	MinPartitionSeconds       int64
	MinStepUs                 int64
	JoinRightSideLimit        int64
	PartitionPolicy           cluster.Policy
	BroadcastJoinEnabled      bool // feature_broadcast_join_enabled
	BroadcastJoinMaxRows      int64
	StreamingAggsEnabled      bool // feature_query_streaming_aggs
	SingleNodeOptimizeEnabled bool // feature_single_node_optimize_enabled
	CacheBaseBucketWidth      time.Duration
	CacheWatermark            time.Duration
}

// Driver is the stateless (beyond its collaborators) C9 entrypoint. One
// Driver serves every request in a process; per-request state lives on the
// stack of Execute.
type Driver struct {
	Compiler     *sqlmodel.Compiler
	Schemas      SchemaStore
	FileStore    cluster.FileListStore
	EnrichLookup cluster.EnrichStartLookup
	Directory    *cluster.NodeDirectory
	Classifier   workgroup.Classifier
	Limiter      *workgroup.Limiter
	Operator     *remotescan.Operator
	Registry     *registry.Registry
	AggCache     *aggcache.Cache    // optional: nil disables C8
	Cardinality  *cardinality.Cache // optional: nil disables cardinality-aware bucket widths
	Now          func() time.Time
	Cfg          Config
}

var tracer = otel.Tracer("github.com/tomtom215/querymesh/internal/driver")

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Execute runs the full §4.9 pseudoflow for one request, wrapped in a
// tracing span covering the whole request/response cycle.
func (d *Driver) Execute(ctx context.Context, req querymeta.Request) (querymeta.Response, error) {
	ctx, span := tracer.Start(ctx, "driver.Execute", trace.WithAttributes(
		attribute.String("querymesh.org", req.Org),
		attribute.String("querymesh.trace_id", req.TraceID),
		attribute.String("querymesh.stream_type", string(req.StreamType)),
	))
	defer span.End()

	requestStart := d.now()
	resp, err := d.execute(ctx, req)
	metrics.RecordQuery(req.Org, string(req.StreamType), resp.WorkGroup, d.now().Sub(requestStart), resp.ScanSize, resp.ScanFiles, resp.IsPartial, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}
	span.SetAttributes(
		attribute.Int64("querymesh.rows", int64(len(resp.Hits))),
		attribute.Bool("querymesh.is_partial", resp.IsPartial),
	)
	return resp, nil
}

func (d *Driver) execute(ctx context.Context, req querymeta.Request) (querymeta.Response, error) {
	start := d.now()

	if err := validateRequest(req); err != nil {
		return querymeta.Response{}, err
	}

	searchCtx, release, err := d.Registry.Register(ctx, req.TraceID)
	if err != nil {
		return querymeta.Response{}, err
	}
	defer release()

	timeout := d.effectiveQueryTimeout(req)
	searchCtx, cancel := context.WithTimeout(searchCtx, timeout)
	defer cancel()

	log := logging.CtxWith(searchCtx).Str("trace_id", req.TraceID).Logger()
	log.Info().Str("org", req.Org).Str("sql", req.SQL).Msg("query started")

	schemas, err := d.Schemas.Schemas(searchCtx, req.Org, req.StreamType)
	if err != nil {
		return querymeta.Response{}, err
	}

	compiled, err := d.Compiler.Compile(searchCtx, sqlmodel.CompileRequest{
		SQL:          req.SQL,
		Org:          req.Org,
		StreamType:   req.StreamType,
		UserID:       req.UserID,
		TimeRange:    req.TimeRange,
		Streams:      schemas,
		Placeholder:  d.placeholderOrDefault(),
		DefaultLimit: d.Cfg.DefaultLimit,
	})
	if err != nil {
		return querymeta.Response{}, err
	}

	if len(compiled.Streams) == 0 {
		return emptyResponse(req, start, d.now()), nil
	}

	fileLists, err := cluster.QueryFileLists(searchCtx, d.FileStore, d.EnrichLookup, req.TraceID, compiled, d.now)
	if err != nil {
		return querymeta.Response{}, err
	}

	roleGroup := roleGroupFor(req.SearchEventType)
	nodes, err := d.Directory.OnlineQueriers(searchCtx, roleGroup)
	if err != nil {
		return querymeta.Response{}, err
	}

	scanBytesEstimate := totalScanBytes(fileLists)
	singleNode := d.Cfg.SingleNodeOptimizeEnabled && (req.LocalMode || len(nodes) == 1) && len(compiled.Streams) <= 1

	var guard *workgroup.Guard
	var wgClass workgroup.Class
	if !singleNode {
		wgClass = d.Classifier.Classify(req, scanBytesEstimate)
		guard, err = d.Limiter.Acquire(searchCtx, wgClass)
		metrics.RecordWorkGroupAdmission(string(wgClass), err == nil)
		if err != nil {
			return querymeta.Response{}, err
		}
		defer guard.Release()
		req.WorkGroup = string(wgClass)
	}

	res, err := d.plan(searchCtx, req, compiled, fileLists, nodes, singleNode, roleGroup)
	if err != nil {
		return querymeta.Response{}, err
	}

	collected, err := d.collect(searchCtx, res.assignments, timeout)
	if err != nil {
		return querymeta.Response{}, err
	}

	resp := buildResponse(req, compiled, collected, start, d.now())
	if guard != nil {
		resp.TookDetail.WaitInQueueMS = guard.WaitInQueueMS
		resp.WorkGroup = string(wgClass)
	}
	applyDefaultLimitAdvisory(&resp, req, d.Cfg.DefaultLimit)
	applyMetricsExtrapolation(&resp, req)

	log.Info().Int64("took_ms", resp.TookMS).Int64("rows", int64(len(resp.Hits))).Bool("is_partial", resp.IsPartial).Msg("query finished")
	return resp, nil
}

func (d *Driver) placeholderOrDefault() string {
	if d.Cfg.Placeholder != "" {
		return d.Cfg.Placeholder
	}
	return "_o2_all_"
}

// effectiveQueryTimeout honors a request-supplied timeout (it can only
// tighten, never loosen, the configured default).
func (d *Driver) effectiveQueryTimeout(req querymeta.Request) time.Duration {
	timeout := d.Cfg.QueryTimeout
	if req.TimeoutSeconds > 0 {
		requested := time.Duration(req.TimeoutSeconds) * time.Second
		if timeout <= 0 || requested < timeout {
			timeout = requested
		}
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return timeout
}

func validateRequest(req querymeta.Request) error {
	if req.TraceID == "" {
		return qerrors.New(qerrors.KindUnsupportedConstruct, "request is missing a trace_id")
	}
	if req.Org == "" {
		return qerrors.New(qerrors.KindUnsupportedConstruct, "request is missing an org")
	}
	if req.SQL == "" {
		return qerrors.New(qerrors.KindParseSQL, "request SQL is empty")
	}
	if req.TimeRange.Empty() {
		return qerrors.New(qerrors.KindUnsupportedConstruct, "request time_range is empty")
	}
	return nil
}

func roleGroupFor(t querymeta.SearchEventType) querymeta.RoleGroup {
	switch t {
	case querymeta.SearchEventReport, querymeta.SearchEventDerivedStream, querymeta.SearchEventAlert:
		return querymeta.RoleGroupBackground
	default:
		return querymeta.RoleGroupInteractive
	}
}

func totalScanBytes(fileLists map[querymeta.StreamRef]querymeta.FileList) int64 {
	var total int64
	for _, fl := range fileLists {
		total += fl.TotalOriginalSize()
	}
	return total
}

func emptyResponse(req querymeta.Request, start, end time.Time) querymeta.Response {
	return querymeta.Response{
		TraceID: req.TraceID,
		TookMS:  end.Sub(start).Milliseconds(),
		From:    req.From,
		Size:    req.Size,
	}
}

// planAssignment pairs a remote-scan partition request with the node that
// will execute it.
type planAssignment struct {
	Node    querymeta.Node
	Request remotescan.PartitionRequest
}

type planResult struct {
	assignments []planAssignment
}

// plan runs C2 (logical rewrites) then C3 (physical lowering, RemoteScan
// insertion) over a shape-only logical tree built from compiled, fills in
// each RemoteScanExec's file-id partitions from C4's results, and flattens
// the physical plan's RemoteScan nodes into one (node, PartitionRequest)
// assignment per output partition.
func (d *Driver) plan(ctx context.Context, req querymeta.Request, compiled *querymeta.CompiledSQL, fileLists map[querymeta.StreamRef]querymeta.FileList, nodes []querymeta.Node, singleNode bool, roleGroup querymeta.RoleGroup) (planResult, error) {
	ref := primaryStream(compiled)

	if singleNode {
		node := nodes[0]
		return planResult{assignments: []planAssignment{{
			Node: node,
			Request: remotescan.PartitionRequest{
				TraceID:           req.TraceID,
				Stream:            ref.Name,
				FileIDs:           fileIDStrings(fileLists[ref]),
				IndexCondition:    compiled.IndexCondition,
				IndexOptimizeMode: compiled.IndexOptimizeMode,
				PhysicalPlan:      []byte(compiled.SQL),
			},
		}}}, nil
	}

	arena, root := buildLogicalPlan(compiled)

	rangeLen := int64(0)
	if compiled.TimeRange != nil {
		rangeLen = compiled.TimeRange.Duration().Microseconds()
	}
	var ftsFields []string
	if schema, ok := compiled.Streams[ref]; ok {
		ftsFields = schema.Settings.FullTextSearchFields
	}
	optimizer := logicalplan.DefaultOptimizer(logicalplan.Config{
		RangeLen:           rangeLen,
		FTSFields:          ftsFields,
		JoinRightSideLimit: d.Cfg.JoinRightSideLimit,
	})
	root, err := optimizer.Run(arena, root)
	if err != nil {
		return planResult{}, qerrors.Wrap(qerrors.KindPlanBuild, "logical plan rewrite failed", err)
	}

	cpuCount := d.Cfg.CPUCount
	if cpuCount <= 0 {
		cpuCount = len(nodes)
	}
	physCfg := physicalplan.Config{
		TargetPartitions:     cpuCount,
		WorkGroup:            req.WorkGroup,
		SingleNode:           false,
		StreamCount:          len(compiled.Streams),
		BroadcastJoinEnabled: d.Cfg.BroadcastJoinEnabled,
		BroadcastJoinMaxRows: d.Cfg.BroadcastJoinMaxRows,
	}
	if compiled.TimeRange != nil {
		physCfg.TimeRange = *compiled.TimeRange
	}
	result := physicalplan.Plan(arena, root, physCfg, noRowEstimate, d.Cfg.StreamingAggsEnabled)

	partitionsByStream := cluster.PartitionStreams(fileLists, nodes, d.Cfg.PartitionPolicy, string(roleGroup))

	enrichPartition := -1
	var assignments []planAssignment
	arena.Walk(result.Root, func(id planmodel.NodeID, op planmodel.Op, _ []planmodel.NodeID) {
		rs, ok := op.(planmodel.RemoteScanExec)
		if !ok {
			return
		}
		stream := remoteScanStream(arena, id)
		if stream == "" {
			stream = ref.Name
		}
		streamRef := matchingRef(compiled, stream)
		buckets := partitionsByStream[streamRef]
		rs.Partitions = buckets
		arena.Replace(id, rs)

		if enrichPartition < 0 && len(buckets) > 0 {
			enrichPartition = remotescan.PickEnrichPartition(len(buckets), int64(xxh3.HashString(compiled.SQL)))
		}

		for i, bucket := range buckets {
			if i >= len(nodes) {
				break
			}
			assignments = append(assignments, planAssignment{
				Node: nodes[i],
				Request: remotescan.PartitionRequest{
					TraceID:           req.TraceID,
					Stream:            stream,
					FileIDs:           bucket,
					IndexCondition:    compiled.IndexCondition,
					IndexOptimizeMode: result.IndexOptimizeMode,
					EnrichMode:        streamRef.IsEnrichment() && i == enrichPartition,
					PhysicalPlan:      []byte(compiled.SQL),
				},
			})
		}
	})

	if len(assignments) == 0 {
		// Every bucket was empty (e.g. an empty file list); still issue one
		// assignment per node so RunPartition's step-3 short circuit can
		// account for it in scan stats.
		for _, n := range nodes {
			assignments = append(assignments, planAssignment{
				Node: n,
				Request: remotescan.PartitionRequest{
					TraceID:      req.TraceID,
					Stream:       ref.Name,
					PhysicalPlan: []byte(compiled.SQL),
				},
			})
		}
	}

	return planResult{assignments: assignments}, nil
}

func noRowEstimate(*planmodel.Arena, planmodel.NodeID) physicalplan.RowEstimate {
	return physicalplan.RowEstimate{}
}

func remoteScanStream(arena *planmodel.Arena, id planmodel.NodeID) string {
	var stream string
	arena.Walk(id, func(_ planmodel.NodeID, op planmodel.Op, _ []planmodel.NodeID) {
		if stream != "" {
			return
		}
		switch s := op.(type) {
		case planmodel.ScanExec:
			stream = s.Stream
		case planmodel.Relation:
			stream = s.Stream
		}
	})
	return stream
}

func matchingRef(compiled *querymeta.CompiledSQL, streamName string) querymeta.StreamRef {
	for ref := range compiled.Streams {
		if ref.Name == streamName {
			return ref
		}
	}
	return querymeta.StreamRef{}
}

func fileIDStrings(fl querymeta.FileList) []string {
	out := make([]string, 0, len(fl))
	for _, f := range fl {
		if f.Deleted {
			continue
		}
		out = append(out, fmt.Sprintf("%d", f.ID))
	}
	return out
}

// collectedResult is what collect() yields once every partition's stream
// has drained (or the race was lost to timeout/cancel).
type collectedResult struct {
	Rows         []querymeta.Row
	PartialNotes []string
	Stats        remotescan.PartitionStats
	Metrics      []string
	PeakMemory   int64
}

// collect runs every partition's RunPartition concurrently and races the
// whole batch against ctx (spec §4.9 "race: future completes / timeout
// elapses / cancel signal set"). Once every partition has finished, the
// first partition error (in assignment order) whose Kind fails the whole
// request is returned; any other partition error degrades to a
// partial-error note instead, matching spec §7's propagation table.
func (d *Driver) collect(ctx context.Context, assignments []planAssignment, queryTimeout time.Duration) (collectedResult, error) {
	sharedStats := &remotescan.SharedStats{}
	clusterMetrics := &remotescan.ClusterMetrics{}

	type outcome struct {
		rows    []querymeta.Row
		partial string
		err     error
	}
	outcomes := make([]outcome, len(assignments))

	var wg sync.WaitGroup
	for i, a := range assignments {
		wg.Add(1)
		go func(i int, a planAssignment) {
			defer wg.Done()
			result, err := d.Operator.RunPartition(ctx, a.Node, a.Request, queryTimeout, sharedStats, clusterMetrics)
			if err != nil {
				if qerrors.FailsWholeRequest(qerrors.KindOf(err)) {
					outcomes[i] = outcome{err: err}
				} else {
					outcomes[i] = outcome{partial: err.Error()}
				}
				return
			}

			var rows []querymeta.Row
			for batch := range result.Batches {
				decoded, derr := decodeRecordBatch(batch)
				if derr != nil {
					outcomes[i] = outcome{err: qerrors.Wrap(qerrors.KindInternalExecution, "failed to decode remote scan record batch", derr)}
					return
				}
				rows = append(rows, decoded...)
			}
			d.Operator.TrackPeakMemory(estimateRowSetBytes(rows))
			outcomes[i] = outcome{rows: rows, partial: result.PartialNote}
		}(i, a)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		<-done // RunPartition's internal rpcCtx shares ctx's deadline/cancel and unwinds promptly
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return collectedResult{}, qerrors.Wrap(qerrors.KindSearchTimeout, "query timed out", ctx.Err())
		}
		return collectedResult{}, qerrors.Wrap(qerrors.KindSearchCancelled, "query was cancelled", ctx.Err())
	}

	var rows []querymeta.Row
	var partialNotes []string
	for _, o := range outcomes {
		if o.err != nil {
			return collectedResult{}, o.err
		}
		rows = append(rows, o.rows...)
		if o.partial != "" {
			partialNotes = append(partialNotes, o.partial)
		}
	}

	return collectedResult{
		Rows:         rows,
		PartialNotes: partialNotes,
		Stats:        sharedStats.Snapshot(),
		Metrics:      clusterMetrics.Snapshot(),
		PeakMemory:   atomic.LoadInt64(&d.Operator.PeakMemory),
	}, nil
}

func estimateRowSetBytes(rows []querymeta.Row) int64 {
	// A coarse per-row footprint estimate for peak-memory accounting; exact
	// accounting would require tracking Arrow buffer sizes through decode,
	// which the decoder discards once rows are materialized.
	const bytesPerCell = 32
	var total int64
	for _, r := range rows {
		total += int64(len(r)) * bytesPerCell
	}
	return total
}

func buildResponse(req querymeta.Request, compiled *querymeta.CompiledSQL, collected collectedResult, start, end time.Time) querymeta.Response {
	columns := make([]string, 0)
	if len(collected.Rows) > 0 {
		for col := range collected.Rows[0] {
			columns = append(columns, col)
		}
	}
	resp := querymeta.Response{
		TraceID:           req.TraceID,
		TookMS:            end.Sub(start).Milliseconds(),
		Hits:              collected.Rows,
		Total:             int64(len(collected.Rows)),
		From:              req.From,
		Size:              req.Size,
		ScanFiles:         collected.Stats.ScanFiles,
		ScanSize:          collected.Stats.ScanSize,
		ScanRecords:       collected.Stats.NumRows,
		Columns:           columns,
		PeakMemoryUsage:   collected.PeakMemory,
		IsPartial:         len(collected.PartialNotes) > 0,
		FunctionError:     collected.PartialNotes,
		HistogramInterval: compiled.HistogramInterval,
	}
	return resp
}

// applyDefaultLimitAdvisory implements spec §4.9 "Default-limit exceedance":
// when the row count exceeds the global default and the user supplied no
// explicit LIMIT, the response is flagged partial with an advisory note
// instead of being silently truncated.
func applyDefaultLimitAdvisory(resp *querymeta.Response, req querymeta.Request, defaultLimit int64) {
	if defaultLimit <= 0 || req.Size > 0 {
		return
	}
	if resp.Total <= defaultLimit {
		return
	}
	resp.IsPartial = true
	resp.FunctionError = append(resp.FunctionError, fmt.Sprintf(
		"result has %d rows, exceeding the default limit of %d; supply an explicit LIMIT to suppress this notice", resp.Total, defaultLimit))
}
