// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saferwall/dex"
	"github.com/saferwall/dex/callgraph"
)

func newStripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strip <input>",
		Short: "patch every unresolvable reference to a type-preserving no-op and re-emit the container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			g := buildCallgraph(in)
			before := callgraph.Summarize(g)
			if err := callgraph.PatchUnknownRefs(in.Repo, g); err != nil {
				return fmt.Errorf("patching: %w", err)
			}
			logHelper.Infof("patched %d zombie node(s) out of %d", before.Zombies, before.Total)

			if in.Package != nil {
				for _, c := range in.Containers {
					b, err := dex.Serialize(c, true)
					if err != nil {
						return fmt.Errorf("serializing %s: %w", c.Name, err)
					}
					if err := in.Package.Replace(c.Name, b); err != nil {
						return err
					}
				}
				var buf bytes.Buffer
				if err := in.Package.Write(&buf); err != nil {
					return err
				}
				target := flagOutput
				if target == "" {
					target = args[0]
				}
				return os.WriteFile(target, buf.Bytes(), 0o644)
			}

			if len(in.Containers) != 1 {
				return fmt.Errorf("strip: expected exactly one container for a bare .dex input")
			}
			b, err := dex.Serialize(in.Containers[0], true)
			if err != nil {
				return err
			}
			target := flagOutput
			if target == "" {
				target = args[0]
			}
			return os.WriteFile(target, b, 0o644)
		},
	}
}
