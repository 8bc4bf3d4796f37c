// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saferwall/dex"
)

func newDexdissectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dexdissect <input>",
		Short: "dump every class, field, and method in a bytecode container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			var out strings.Builder
			tw := tabwriter.NewWriter(&out, 0, 4, 2, ' ', 0)
			for _, class := range in.Repo.IterClasses() {
				if !matchesFilter(class.Name, "") {
					continue
				}
				fmt.Fprintf(tw, "class\t%s\tsuper=%s\tsystem=%v\n", class.Name, class.SuperclassName, class.System)
				for _, m := range in.Repo.IterClassMethods(class) {
					if !matchesFilter(class.Name, m.Descr.Name) {
						continue
					}
					fmt.Fprintf(tw, "  method\t%s\t(%s)%s\tstatic=%v\n",
						m.Descr.Name, strings.Join(m.Descr.ParamTypes, ","), m.Descr.ReturnType, m.IsStatic())
				}
			}
			tw.Flush()
			return writeOutput(out.String())
		},
	}
}

func newDisasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disas <input> <class> <method>",
		Short: "disassemble one method's instruction stream",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			className, methodName := args[1], args[2]
			class, ok := in.Repo.GetClassByName(className)
			if !ok {
				return fmt.Errorf("class %q not found", className)
			}

			var out strings.Builder
			found := false
			for _, m := range in.Repo.IterClassMethods(class) {
				if m.Descr.Name != methodName || m.CodeOff == 0 {
					continue
				}
				item, ok := m.Dex.CodeItemAt(m.CodeOff)
				if !ok {
					continue
				}
				found = true
				fmt.Fprintf(&out, "%s.%s(%s)%s\n", className, methodName, strings.Join(m.Descr.ParamTypes, ","), m.Descr.ReturnType)
				for _, line := range dex.Disassemble(m.Dex, item) {
					fmt.Fprintln(&out, "  "+line)
				}
			}
			if !found {
				return fmt.Errorf("method %s.%s not found or has no code", className, methodName)
			}
			return writeOutput(out.String())
		},
	}
}
