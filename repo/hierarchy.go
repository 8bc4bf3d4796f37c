// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package repo

import (
	"fmt"
	"sort"

	"github.com/heimdalr/dag"
)

// RootClassName is the synthesised root of the extends hierarchy, the
// equivalent of java/lang/Object, inserted by CloseHierarchy if no
// container defines it.
const RootClassName = "Ljava/lang/Object;"

// classVertex adapts a class name to heimdalr/dag's IDInterface so the
// hierarchy graph can be keyed by name without a separate lookup table.
type classVertex string

func (c classVertex) ID() string { return string(c) }

// Hierarchy is the directed graph over classes with two edge flavours,
// extends and implements, both folded into one heimdalr/dag.DAG since
// the dispatch walk never needs to distinguish them — only to walk
// ancestors in some order. The library's own cycle rejection on AddEdge
// is what enforces the repository's acyclicity invariant; no separate
// cycle check is needed after construction.
type Hierarchy struct {
	d      *dag.DAG
	closed bool
}

func newHierarchy() *Hierarchy {
	return &Hierarchy{d: dag.NewDAG()}
}

func (h *Hierarchy) ensureVertex(name string) {
	if _, err := h.d.GetVertex(name); err != nil {
		_ = h.d.AddVertex(classVertex(name))
	}
}

// addExtends records that sub extends super, or implements it if the
// edge represents an interface relationship; the graph does not
// distinguish the two beyond what callers track on the Class value
// itself.
func (h *Hierarchy) addEdge(sub, super string) error {
	h.ensureVertex(sub)
	h.ensureVertex(super)
	if err := h.d.AddEdge(super, sub); err != nil {
		return fmt.Errorf("%w: %s -> %s: %v", ErrCyclicHierarchy, sub, super, err)
	}
	return nil
}

// close synthesises the root class if missing and points every
// otherwise-rootless class at it.
func (h *Hierarchy) close(classes map[string]*Class) error {
	h.ensureVertex(RootClassName)
	for name, c := range classes {
		if name == RootClassName {
			continue
		}
		if c.SuperclassName == "" && len(parentsOf(h, name)) == 0 {
			if err := h.addEdge(name, RootClassName); err != nil {
				return err
			}
		}
	}
	h.closed = true
	return nil
}

func parentsOf(h *Hierarchy, name string) map[string]dag.IDInterface {
	parents, err := h.d.GetParents(name)
	if err != nil {
		return nil
	}
	return parents
}

// ancestors returns every class name reachable by following extends/
// implements edges upward from name, name itself excluded.
func (h *Hierarchy) ancestors(name string) ([]string, error) {
	anc, err := h.d.GetAncestors(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	out := make([]string, 0, len(anc))
	for id := range anc {
		out = append(out, id)
	}
	return out, nil
}

// descendants returns every class name reachable by following extends/
// implements edges downward from name, name itself excluded.
func (h *Hierarchy) descendants(name string) ([]string, error) {
	desc, err := h.d.GetDescendants(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	out := make([]string, 0, len(desc))
	for id := range desc {
		out = append(out, id)
	}
	return out, nil
}

// orderedAncestors walks name's parents breadth-first, nearest first, so
// that a method resolution taking the first match from this order picks
// the closest override rather than an arbitrary or alphabetically-first
// one. Parents at the same depth are visited in sorted order so the walk
// is deterministic across runs; a class reachable through more than one
// path (diamond interface inheritance) is reported once, at its
// shallowest depth.
func (h *Hierarchy) orderedAncestors(name string) ([]string, error) {
	if _, err := h.d.GetVertex(name); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}

	visited := map[string]bool{name: true}
	var out []string
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		parents, err := h.d.GetParents(cur)
		if err != nil {
			continue
		}
		names := make([]string, 0, len(parents))
		for id := range parents {
			names = append(names, id)
		}
		sort.Strings(names)

		for _, p := range names {
			if visited[p] {
				continue
			}
			visited[p] = true
			out = append(out, p)
			queue = append(queue, p)
		}
	}
	return out, nil
}

// isAncestor reports whether super is name itself or reachable upward
// from name — i.e. whether a value statically typed name can be used
// where super is expected.
func (h *Hierarchy) isAncestor(name, super string) bool {
	if name == super {
		return true
	}
	anc, err := h.ancestors(name)
	if err != nil {
		return false
	}
	for _, a := range anc {
		if a == super {
			return true
		}
	}
	return false
}
