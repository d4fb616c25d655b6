// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package planmodel holds the arena-indexed plan tree shared by the logical
// (C2) and physical (C3) plan rewriters. Plans are trees, never cyclic
// graphs, so the arena owns every node and operators reference children by
// index rather than by pointer (spec §9 "Cyclic plan references").
//
// Dynamic dispatch over operators is modeled as a stable operator-name
// registry plus explicit type-switch matching, not structural equality
// checks, per spec §9 "Dynamic dispatch over logical/physical operators".
package planmodel

import "fmt"

// NodeID indexes a node within an Arena. The zero value is not a valid
// node; Arena.Add always returns IDs starting at 1 so a NodeID zero value
// can mean "no node" in optional fields.
type NodeID int

// Op is any logical or physical operator. Name returns the stable operator
// name used by rewrite rules to identify a node's shape without relying on
// Go's concrete type identity across package boundaries.
type Op interface {
	Name() string
}

// node is the arena's internal storage: an operator plus its children.
type node struct {
	op       Op
	children []NodeID
}

// Arena owns every node of one plan tree.
type Arena struct {
	nodes []node
	root  NodeID
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{nodes: make([]node, 0, 16)}
}

// Add inserts op with the given children and returns its NodeID.
func (a *Arena) Add(op Op, children ...NodeID) NodeID {
	a.nodes = append(a.nodes, node{op: op, children: children})
	return NodeID(len(a.nodes))
}

// SetRoot records id as the arena's root node.
func (a *Arena) SetRoot(id NodeID) { a.root = id }

// Root returns the arena's root node id.
func (a *Arena) Root() NodeID { return a.root }

// Op returns the operator stored at id.
func (a *Arena) Op(id NodeID) Op {
	if id == 0 || int(id) > len(a.nodes) {
		return nil
	}
	return a.nodes[id-1].op
}

// Children returns the child node ids of id, in order.
func (a *Arena) Children(id NodeID) []NodeID {
	if id == 0 || int(id) > len(a.nodes) {
		return nil
	}
	return a.nodes[id-1].children
}

// SetChildren replaces id's children in place.
func (a *Arena) SetChildren(id NodeID, children []NodeID) {
	if id == 0 || int(id) > len(a.nodes) {
		return
	}
	a.nodes[id-1].children = children
}

// Replace swaps the operator stored at id, keeping its children.
func (a *Arena) Replace(id NodeID, op Op) {
	if id == 0 || int(id) > len(a.nodes) {
		return
	}
	a.nodes[id-1].op = op
}

// Clone deep-copies the subtree rooted at id into dst (which may be the
// same arena), returning the cloned root's id. Used when a rewrite needs an
// independent copy of a subtree, e.g. wrapping each branch of a Union.
func (a *Arena) Clone(dst *Arena, id NodeID) NodeID {
	if id == 0 {
		return 0
	}
	n := a.nodes[id-1]
	clonedChildren := make([]NodeID, len(n.children))
	for i, c := range n.children {
		clonedChildren[i] = a.Clone(dst, c)
	}
	return dst.Add(n.op, clonedChildren...)
}

// Walk visits every node reachable from id, post-order (children before
// parent), calling visit once per node.
func (a *Arena) Walk(id NodeID, visit func(NodeID, Op, []NodeID)) {
	if id == 0 {
		return
	}
	for _, c := range a.Children(id) {
		a.Walk(c, visit)
	}
	visit(id, a.Op(id), a.Children(id))
}

// Find returns the first node reachable from id (pre-order) whose Op's Name
// equals name, or 0 if none match.
func (a *Arena) Find(id NodeID, name string) NodeID {
	if id == 0 {
		return 0
	}
	if op := a.Op(id); op != nil && op.Name() == name {
		return id
	}
	for _, c := range a.Children(id) {
		if found := a.Find(c, name); found != 0 {
			return found
		}
	}
	return 0
}

// Contains reports whether any node reachable from id has operator name.
func (a *Arena) Contains(id NodeID, name string) bool {
	return a.Find(id, name) != 0
}

// Parent returns the id of the node reachable from root whose children
// include target, or 0 if target is root or unreachable. Used by rewrite
// rules that need to splice a node out of the tree and have no parent
// pointers to follow.
func (a *Arena) Parent(root, target NodeID) NodeID {
	if root == 0 || root == target {
		return 0
	}
	for _, c := range a.Children(root) {
		if c == target {
			return root
		}
		if p := a.Parent(c, target); p != 0 {
			return p
		}
	}
	return 0
}

// String renders a debug tree for test failure messages.
func (a *Arena) String() string {
	return a.render(a.root, 0)
}

func (a *Arena) render(id NodeID, depth int) string {
	if id == 0 {
		return ""
	}
	op := a.Op(id)
	name := "<nil>"
	if op != nil {
		name = op.Name()
	}
	s := fmt.Sprintf("%*s%s\n", depth*2, "", name)
	for _, c := range a.Children(id) {
		s += a.render(c, depth+1)
	}
	return s
}
