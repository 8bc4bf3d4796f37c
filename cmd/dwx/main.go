// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command dwx is the command-line front end over the analysis core:
// every subcommand opens an input, drives one library call, and prints
// or serialises the result. It deliberately carries no analysis logic
// of its own.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saferwall/dex/log"
)

var (
	flagOutput       string
	flagSystem       bool
	flagFilterClass  string
	flagFilterMethod string
	flagDebug        bool
	flagVerbose      bool

	logHelper *log.Helper
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dwx",
		Short: "Static-analysis toolkit for Android application binaries",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.LevelInfo
			if flagDebug {
				level = log.LevelDebug
			} else if !flagVerbose {
				level = log.LevelWarn
			}
			logger := log.NewStdLogger(os.Stderr)
			logger = log.NewFilter(logger, log.FilterLevel(level))
			logHelper = log.NewHelper(logger)
		},
	}

	root.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "write result to this path instead of stdout")
	root.PersistentFlags().BoolVar(&flagSystem, "system", false, "include platform/system classes")
	root.PersistentFlags().StringVar(&flagFilterClass, "filter-class", "", "restrict output to this class name")
	root.PersistentFlags().StringVar(&flagFilterMethod, "filter-method", "", "restrict output to this method name")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(
		newDexdissectCmd(),
		newDisasCmd(),
		newHierarchyCmd(),
		newCallgraphCmd(),
		newTypecheckCmd(),
		newStripCmd(),
		newStatsCmd(),
		newManifestCmd(),
		newPermissionsCmd(),
		newPackageinfoCmd(),
		newNscCmd(),
		newAresourcesCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the dwx version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("dwx 0.1.0")
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
