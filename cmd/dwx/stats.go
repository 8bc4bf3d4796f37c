// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"

	"github.com/saferwall/dex/callgraph"
	"github.com/saferwall/dex/flow"
)

// statsReport is a whole-package summary: one row of counts spanning
// every component in the pipeline, the same "one glance" role the
// command-line tool's dump flags play for a single PE's header fields.
type statsReport struct {
	Containers int
	Classes    int
	Methods    int
	Fields     int
	Callgraph  callgraph.Report
	Signatures int
	FlowErrors int
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <input>",
		Short: "summarise class/method/callgraph/flow counts across the whole package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			report := statsReport{Containers: len(in.Containers)}
			for _, class := range in.Repo.IterClasses() {
				report.Classes++
				report.Fields += len(class.Fields)
				report.Methods += len(class.Methods)
			}

			g := buildCallgraph(in)
			report.Callgraph = callgraph.Summarize(g)

			flowReport := flow.Analyze(in.Repo, g)
			report.Signatures = len(flowReport.Signatures)
			report.FlowErrors = len(flowReport.Errors)

			return writeOutput(prettyPrint(report))
		},
	}
}
