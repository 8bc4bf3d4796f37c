// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package callgraph

import (
	"fmt"

	"github.com/emicklei/dot"
	"github.com/google/uuid"

	"github.com/saferwall/dex/repo"
)

// Report summarises one Build+Mark+Propagate run for CLI/log
// correlation: a fresh ID per invocation, since the same repository can
// be analyzed more than once in a process (e.g. once per IncludeSystem
// setting) and callers need to tell the runs apart in logs.
type Report struct {
	ID      uuid.UUID
	Total   int
	Zombies int
	ByClass map[string]int
}

// Summarize builds a Report from g's current node set. Call after
// MarkUnknownRefs and PropagateZombies so zombie counts are final.
func Summarize(g *Graph) Report {
	r := Report{ID: uuid.New(), ByClass: map[string]int{}}
	for d, n := range g.Nodes {
		r.Total++
		if n.IsZombie() {
			r.Zombies++
			r.ByClass[d.ClassName]++
		}
	}
	return r
}

func statusColor(s Status) string {
	switch s {
	case App:
		return "lightblue"
	case System:
		return "lightgray"
	case Inherited:
		return "khaki"
	case Unknown:
		return "firebrick1"
	default:
		return "white"
	}
}

// DOT renders g as a Graphviz digraph: one node per method colored by
// its resolution Status, zombie nodes double-bordered, one edge per
// (caller, callee) pair labeled with its call-site count. Intended for
// the callgraph CLI verb, the same role the command-line tool's
// --verbose dump flags play for PE structures.
func DOT(g *Graph) string {
	gv := dot.NewGraph(dot.Directed)

	nodeFor := make(map[repo.MethodDescr]dot.Node, len(g.Nodes))
	for d, n := range g.Nodes {
		id := fmt.Sprintf("%s->%s", d.ClassName, d.Name)
		gvn := gv.Node(id).
			Label(fmt.Sprintf("%s\\n%s", d.ClassName, d.Name)).
			Attr("style", "filled").
			Attr("fillcolor", statusColor(n.Status))
		if n.IsZombie() {
			gvn = gvn.Attr("peripheries", "2")
		}
		nodeFor[d] = gvn
	}

	for d := range g.Nodes {
		for _, e := range g.Edges(d) {
			gv.Edge(nodeFor[e.From], nodeFor[e.To]).Label(fmt.Sprintf("%d", len(e.Sites)))
		}
	}

	return gv.String()
}
