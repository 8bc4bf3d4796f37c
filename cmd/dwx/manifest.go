// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saferwall/dex/apk"
)

func openPackage(path string) (*apk.Package, error) {
	pkg, err := apk.Open(path)
	if err != nil {
		return nil, err
	}
	if pkg.Manifest == nil {
		return pkg, fmt.Errorf("no AndroidManifest.xml found in %s", path)
	}
	return pkg, nil
}

func newManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest <apk>",
		Short: "dump the decoded AndroidManifest.xml tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := openPackage(args[0])
			if err != nil {
				return err
			}
			defer pkg.Close()

			report := struct {
				Package     string
				VersionName string
				UsesSDK     interface{}
				Activities  interface{}
				Services    interface{}
				Receivers   interface{}
				Providers   interface{}
				Features    interface{}
			}{}
			report.Package, _ = pkg.Manifest.PackageName()
			report.VersionName, _ = pkg.Manifest.VersionName()
			if sdk, ok := pkg.Manifest.UsesSDK(); ok {
				report.UsesSDK = sdk
			}
			report.Activities = pkg.Manifest.Activities()
			report.Services = pkg.Manifest.Services()
			report.Receivers = pkg.Manifest.Receivers()
			report.Providers = pkg.Manifest.Providers()
			report.Features = pkg.Manifest.Features()

			return writeOutput(prettyPrint(report))
		},
	}
}

func newPermissionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "permissions <apk>",
		Short: "list every uses-permission tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := openPackage(args[0])
			if err != nil {
				return err
			}
			defer pkg.Close()
			return writeOutput(prettyPrint(pkg.Manifest.Permissions()))
		},
	}
}

func newPackageinfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "packageinfo <apk>",
		Short: "print package name, version, and top-level flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := openPackage(args[0])
			if err != nil {
				return err
			}
			defer pkg.Close()

			report := struct {
				Package              string
				VersionName          string
				AllowBackup          *bool
				Debuggable           *bool
				UsesCleartextTraffic *bool
			}{}
			report.Package, _ = pkg.Manifest.PackageName()
			report.VersionName, _ = pkg.Manifest.VersionName()
			if v, ok := pkg.Manifest.AllowBackup(); ok {
				report.AllowBackup = &v
			}
			if v, ok := pkg.Manifest.Debuggable(); ok {
				report.Debuggable = &v
			}
			if v, ok := pkg.Manifest.UsesCleartextTraffic(); ok {
				report.UsesCleartextTraffic = &v
			}

			for _, cert := range pkg.Certificates() {
				logHelper.Infof("signed by: %s", cert.Info.Subject)
			}

			return writeOutput(prettyPrint(report))
		},
	}
}

func newNscCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nsc <apk>",
		Short: "print the network security config attribute, if any",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := openPackage(args[0])
			if err != nil {
				return err
			}
			defer pkg.Close()

			ref, ok := pkg.Manifest.NetworkSecurityConfig()
			if !ok {
				return writeOutput("no networkSecurityConfig attribute present")
			}
			return writeOutput(fmt.Sprintf("networkSecurityConfig = %s", ref))
		},
	}
}

func newAresourcesCmd() *cobra.Command {
	var hex bool
	cmd := &cobra.Command{
		Use:   "aresources <apk>",
		Short: "list every entry under res/ and assets/",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := apk.Open(args[0])
			if err != nil {
				return err
			}
			defer pkg.Close()

			names := append(pkg.WalkAssets("res/"), pkg.WalkAssets("assets/")...)
			var out string
			for _, n := range names {
				if apk.IsDirectory(n) {
					continue
				}
				out += n + "\n"
				if !hex {
					continue
				}
				data, _ := pkg.Container(n)
				if len(data) > 64 {
					data = data[:64]
				}
				out += hexDump(data)
			}
			return writeOutput(out)
		},
	}
	cmd.Flags().BoolVar(&hex, "hex", false, "also dump the first 64 bytes of each entry")
	return cmd
}
