// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package cluster

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/zeebo/xxh3"

	"github.com/tomtom215/querymesh/internal/logging"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// Policy names the file-list partitioning strategy of spec §4.4.
type Policy string

const (
	PolicyByCount Policy = "by_count"
	PolicyByBytes Policy = "by_bytes"
	PolicyByHash  Policy = "by_hash"
)

// Partition deals fileList's ids across queriers according to policy,
// returning one bucket of file ids per querier position (non-queriers
// outside the given list never appear; callers pass exactly the queriers
// nodes are assigned to).
func Partition(fileList querymeta.FileList, queriers []querymeta.Node, policy Policy, group string) [][]string {
	n := len(queriers)
	if n == 0 {
		return nil
	}
	switch policy {
	case PolicyByBytes:
		return partitionByBytes(fileList, n)
	case PolicyByHash:
		return partitionByHash(fileList, queriers, group)
	default:
		return partitionByCount(fileList, n)
	}
}

// PartitionStreams applies Partition independently to every stream's file
// list, producing the map<stream_ref, list<list<FileId.id>>> shape spec
// §4.4 specifies.
func PartitionStreams(fileLists map[querymeta.StreamRef]querymeta.FileList, queriers []querymeta.Node, policy Policy, group string) map[querymeta.StreamRef][][]string {
	out := make(map[querymeta.StreamRef][][]string, len(fileLists))
	for ref, fl := range fileLists {
		out[ref] = Partition(fl, queriers, policy, group)
	}
	return out
}

func partitionByCount(fileList querymeta.FileList, n int) [][]string {
	buckets := make([][]string, n)
	i := 0
	for _, f := range fileList {
		if f.Deleted {
			continue
		}
		buckets[i%n] = append(buckets[i%n], strconv.FormatInt(f.ID, 10))
		i++
	}
	return buckets
}

// partitionByBytes walks the list in order, starting a new bucket whenever
// the running original-size within the current bucket exceeds sum/N,
// except on the last bucket (spec §4.4 "By bytes").
func partitionByBytes(fileList querymeta.FileList, n int) [][]string {
	buckets := make([][]string, n)
	total := fileList.TotalOriginalSize()
	if total == 0 {
		return partitionByCount(fileList, n)
	}
	target := total / int64(n)
	if target <= 0 {
		target = 1
	}

	bucket := 0
	var running int64
	for _, f := range fileList {
		if f.Deleted {
			continue
		}
		if bucket < n-1 && running > target {
			bucket++
			running = 0
		}
		buckets[bucket] = append(buckets[bucket], strconv.FormatInt(f.ID, 10))
		running += f.OriginalSize
	}
	return buckets
}

// partitionByHash assigns each file to the querier its consistent hash
// lands on. A file whose hash lands on a node absent from queriers (e.g. a
// cached ring entry that has since left the cluster) falls back to bucket
// 0 with a warning, per spec §4.4 "By hash".
func partitionByHash(fileList querymeta.FileList, queriers []querymeta.Node, group string) [][]string {
	n := len(queriers)
	buckets := make([][]string, n)
	ring := buildRing(queriers, group)
	index := make(map[string]int, n)
	for i, node := range queriers {
		index[node.ID] = i
	}

	for _, f := range fileList {
		if f.Deleted {
			continue
		}
		idText := strconv.FormatInt(f.ID, 10)
		nodeID := ring.lookup(idText)
		i, ok := index[nodeID]
		if !ok {
			logging.Warn().Str("file_id", idText).Str("node_id", nodeID).Msg("consistent hash mapped to unknown node, assigning to bucket 0")
			i = 0
		}
		buckets[i] = append(buckets[i], idText)
	}
	return buckets
}

// hashRing is a minimal consistent-hash ring over xxh3(node identity) so
// the same (file id, role, group) maps to the same querier across calls as
// long as the querier set is stable.
type hashRing struct {
	points []uint64
	owner  map[uint64]string
}

func buildRing(queriers []querymeta.Node, group string) hashRing {
	r := hashRing{owner: make(map[uint64]string, len(queriers))}
	const vnodes = 64
	for _, node := range queriers {
		for v := 0; v < vnodes; v++ {
			key := fmt.Sprintf("%s:%s:%s:%d", querymeta.RoleQuerier, group, node.ID, v)
			h := xxh3.HashString(key)
			r.points = append(r.points, h)
			r.owner[h] = node.ID
		}
	}
	sort.Slice(r.points, func(i, j int) bool { return r.points[i] < r.points[j] })
	return r
}

func (r hashRing) lookup(idText string) string {
	if len(r.points) == 0 {
		return ""
	}
	h := xxh3.HashString(idText)
	i := sort.Search(len(r.points), func(i int) bool { return r.points[i] >= h })
	if i == len(r.points) {
		i = 0
	}
	return r.owner[r.points[i]]
}
