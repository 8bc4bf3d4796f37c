// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saferwall/dex/cfg"
	"github.com/saferwall/dex/dataflow"
	"github.com/saferwall/dex/repo"
	"github.com/saferwall/dex/typecheck"
)

func newTypecheckCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "typecheck <input>",
		Short: "typecheck every method's bytecode via abstract interpretation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			var out strings.Builder
			for _, class := range in.Repo.IterClasses() {
				if class.System && !flagSystem {
					continue
				}
				for _, m := range in.Repo.IterClassMethods(class) {
					if !matchesFilter(class.Name, m.Descr.Name) || m.CodeOff == 0 {
						continue
					}
					if err := typecheckMethod(in.Repo, class, m, strict, &out); err != nil {
						logHelper.Warnf("%s.%s: %v", class.Name, m.Descr.Name, err)
					}
				}
			}
			return writeOutput(out.String())
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "abort at the first subtyping failure instead of recording and continuing")
	return cmd
}

func typecheckMethod(r *repo.Repository, class *repo.Class, m *repo.Method, strict bool, out *strings.Builder) error {
	item, ok := m.Dex.CodeItemAt(m.CodeOff)
	if !ok {
		return fmt.Errorf("no code item at offset %d", m.CodeOff)
	}
	g, err := cfg.Build(item, item.Instructions())
	if err != nil {
		return err
	}
	ctx := &dataflow.Context{Container: m.Dex, Repo: r, Method: m, Class: class}

	outcome, err := typecheck.Analyze(g, ctx, strict)
	if err != nil {
		return err
	}
	if len(outcome.Errors) == 0 {
		return nil
	}
	fmt.Fprintf(out, "%s.%s\n", class.Name, m.Descr.Name)
	for _, e := range outcome.Errors {
		fmt.Fprintf(out, "  %s\n", e.Error())
	}
	return nil
}
