// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newHierarchyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hierarchy <input>",
		Short: "print the class extends/implements hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			var out strings.Builder
			for _, class := range in.Repo.IterClasses() {
				if !matchesFilter(class.Name, "") {
					continue
				}
				fmt.Fprintf(&out, "%s", class.Name)
				if class.SuperclassName != "" {
					fmt.Fprintf(&out, " extends %s", class.SuperclassName)
				}
				if len(class.InterfaceNames) > 0 {
					fmt.Fprintf(&out, " implements %s", strings.Join(class.InterfaceNames, ", "))
				}
				out.WriteByte('\n')
			}
			return writeOutput(out.String())
		},
	}
}
