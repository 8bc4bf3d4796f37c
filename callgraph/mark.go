// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package callgraph

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/repo"
)

// MarkUnknownRefs scans every node's own instruction stream for class
// references and field accessors that do not resolve against r, marking
// the owning node a zombie root at that address. Invoke sites are
// already covered by Build's edge classification; this pass covers the
// remaining reference kinds the spec lists: const-class, check-cast,
// instance-of, new-instance, new-array, filled-new-array[/range], and
// the instance/static field accessors.
func MarkUnknownRefs(g *Graph, r *repo.Repository) {
	for _, n := range g.Nodes {
		if n.UID == 0 {
			continue // placeholder node, no body to scan
		}
		m, ok := r.Method(n.UID)
		if !ok || m.CodeOff == 0 {
			continue
		}
		item, ok := m.Dex.CodeItemAt(m.CodeOff)
		if !ok {
			continue
		}
		for _, l := range item.Instructions() {
			switch {
			case dex.IsClassRef(l.Ins.Op):
				if !classRefResolves(r, m.Dex, l.Ins) {
					n.ZombieRoots[l.Addr] = true
				}
			case dex.IsInstanceFieldGet(l.Ins.Op), dex.IsInstanceFieldPut(l.Ins.Op):
				if !instanceFieldResolves(r, m.Dex, l.Ins) {
					n.ZombieRoots[l.Addr] = true
				}
			case dex.IsStaticFieldGet(l.Ins.Op), dex.IsStaticFieldPut(l.Ins.Op):
				if !staticFieldResolves(r, m.Dex, l.Ins) {
					n.ZombieRoots[l.Addr] = true
				}
			}
		}
	}
}

func classRefResolves(r *repo.Repository, c *dex.Container, ins dex.Instruction) bool {
	name, err := c.TypeName(classRefTypeIdx(ins))
	if err != nil {
		return false
	}
	elem := name
	for len(elem) > 0 && elem[0] == '[' {
		elem = elem[1:] // an array resolves iff its element type does
	}
	if len(elem) == 0 || elem[0] != 'L' {
		return true // primitive or array of primitives, always resolvable
	}
	_, ok := classResolved(r, elem)
	return ok
}

func instanceFieldResolves(r *repo.Repository, c *dex.Container, ins dex.Instruction) bool {
	fr, ok := resolveFieldRef(c, fieldRefIdx(ins))
	if !ok {
		return false
	}
	class, ok := classResolved(r, fr.ClassName)
	if !ok {
		return false
	}
	_, found := r.LookupInstanceField(fr.Name, fr.Type, class)
	return found
}

func staticFieldResolves(r *repo.Repository, c *dex.Container, ins dex.Instruction) bool {
	fr, ok := resolveFieldRef(c, fieldRefIdx(ins))
	if !ok {
		return false
	}
	class, ok := classResolved(r, fr.ClassName)
	if !ok {
		return false
	}
	_, found := r.LookupStaticField(fr.Name, fr.Type, class)
	return found
}
