// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"

	"github.com/saferwall/dex/callgraph"
)

func buildCallgraph(in *input) *callgraph.Graph {
	g := callgraph.Build(in.Repo, callgraph.Options{IncludeSystem: flagSystem})
	callgraph.MarkUnknownRefs(g, in.Repo)
	callgraph.PropagateZombies(g)
	return g
}

func newCallgraphCmd() *cobra.Command {
	var dot bool
	cmd := &cobra.Command{
		Use:   "callgraph <input>",
		Short: "build the interprocedural call graph and report zombie references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			g := buildCallgraph(in)
			if dot {
				return writeOutput(callgraph.DOT(g))
			}
			report := callgraph.Summarize(g)
			return writeOutput(prettyPrint(report))
		},
	}
	cmd.Flags().BoolVar(&dot, "dot", false, "emit a Graphviz DOT graph instead of a JSON summary")
	return cmd
}
