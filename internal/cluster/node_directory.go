// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package cluster implements C4: node discovery, file-list partitioning,
// and the time-range overrides enrichment-table streams need (spec §4.4).
package cluster

import (
	"context"
	"sort"

	"github.com/tomtom215/querymesh/internal/qerrors"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// Directory reports the cluster's currently registered nodes. Production
// builds back this with the membership view the ingester/querier cluster
// maintains; tests and the single-node binary back it with a static list.
type Directory interface {
	Members(ctx context.Context) ([]querymeta.Node, error)
}

// NodeDirectory resolves online queriers for a role group from a Directory.
type NodeDirectory struct {
	Dir Directory
	// LocalMode, when set, restricts OnlineQueriers to the local node.
	LocalMode bool
	LocalNode querymeta.Node
}

// OnlineQueriers returns the querier nodes eligible to run roleGroup's
// queries, sorted by GRPCAddr and deduplicated by address then by id. In
// local mode it returns just the local node if it is a querier, else any
// single querier from the directory. Returns KindNoQuerierOnline if no
// querier is found.
func (d *NodeDirectory) OnlineQueriers(ctx context.Context, roleGroup querymeta.RoleGroup) ([]querymeta.Node, error) {
	if d.LocalMode {
		if d.LocalNode.IsQuerier() {
			return []querymeta.Node{d.LocalNode}, nil
		}
		nodes, err := d.Dir.Members(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if n.IsQuerier() {
				return []querymeta.Node{n}, nil
			}
		}
		return nil, qerrors.New(qerrors.KindNoQuerierOnline, "no querier node available in local mode")
	}

	nodes, err := d.Dir.Members(ctx)
	if err != nil {
		return nil, err
	}

	var queriers []querymeta.Node
	for _, n := range nodes {
		if !n.IsQuerier() {
			continue
		}
		if roleGroup != "" && n.RoleGroup != "" && n.RoleGroup != roleGroup {
			continue
		}
		queriers = append(queriers, n)
	}
	if len(queriers) == 0 {
		return nil, qerrors.New(qerrors.KindNoQuerierOnline, "no querier node online for role group "+string(roleGroup))
	}

	sort.Slice(queriers, func(i, j int) bool {
		if queriers[i].GRPCAddr != queriers[j].GRPCAddr {
			return queriers[i].GRPCAddr < queriers[j].GRPCAddr
		}
		return queriers[i].ID < queriers[j].ID
	})
	return dedupe(queriers), nil
}

func dedupe(nodes []querymeta.Node) []querymeta.Node {
	out := make([]querymeta.Node, 0, len(nodes))
	seenAddr := make(map[string]bool, len(nodes))
	seenID := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seenAddr[n.GRPCAddr] || seenID[n.ID] {
			continue
		}
		seenAddr[n.GRPCAddr] = true
		seenID[n.ID] = true
		out = append(out, n)
	}
	return out
}

// StaticDirectory is a Directory backed by a fixed node list, for
// single-process deployments and tests.
type StaticDirectory []querymeta.Node

func (s StaticDirectory) Members(context.Context) ([]querymeta.Node, error) {
	return []querymeta.Node(s), nil
}
