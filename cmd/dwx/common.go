// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/saferwall/dex"
	"github.com/saferwall/dex/apk"
	"github.com/saferwall/dex/repo"
)

// prettyPrint renders iface as indented JSON, falling back to the
// compact form if marshalling somehow produces unindentable output.
func prettyPrint(iface interface{}) string {
	var pretty bytes.Buffer
	buf, err := json.Marshal(iface)
	if err != nil {
		logHelper.Errorf("JSON marshal error: %v", err)
		return ""
	}
	if err := json.Indent(&pretty, buf, "", "  "); err != nil {
		logHelper.Errorf("JSON indent error: %v", err)
		return string(buf)
	}
	return pretty.String()
}

// writeOutput sends s to --output if set, otherwise stdout.
func writeOutput(s string) error {
	if flagOutput == "" {
		fmt.Println(s)
		return nil
	}
	return os.WriteFile(flagOutput, []byte(s), 0o644)
}

// hexDump renders b as a classic offset/hex/ASCII triptych, 16 bytes per
// row, the same layout the command-line tool uses for section bodies.
func hexDump(b []byte) string {
	var out strings.Builder
	var ascii [16]byte
	n := (len(b) + 15) &^ 15
	for i := 0; i < n; i++ {
		if i%16 == 0 {
			fmt.Fprintf(&out, "%4d", i)
		}
		if i%8 == 0 {
			out.WriteByte(' ')
		}
		if i < len(b) {
			fmt.Fprintf(&out, " %02X", b[i])
		} else {
			out.WriteString("   ")
		}
		switch {
		case i >= len(b):
			ascii[i%16] = ' '
		case b[i] < 32 || b[i] > 126:
			ascii[i%16] = '.'
		default:
			ascii[i%16] = b[i]
		}
		if i%16 == 15 {
			fmt.Fprintf(&out, "  %s\n", string(ascii[:]))
		}
	}
	return out.String()
}

// input bundles every entry point opening the same --input argument can
// produce: the archive (nil for a bare .dex file), its containers, and
// a fully registered repository.
type input struct {
	Package    *apk.Package
	Containers []*dex.Container
	Repo       *repo.Repository
}

// openInput loads path as either an APK (multidex-aware) or a single
// raw bytecode container, then registers every container into a fresh
// repository.
func openInput(path string) (*input, error) {
	in := &input{Repo: repo.New()}

	if strings.HasSuffix(strings.ToLower(path), ".apk") {
		pkg, err := apk.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		in.Package = pkg
		for _, name := range pkg.ContainerNames() {
			data, _ := pkg.Container(name)
			c, err := dex.Parse(data, name)
			if err != nil {
				logHelper.Warnf("skipping %s: %v", name, err)
				continue
			}
			in.Containers = append(in.Containers, c)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		c, err := dex.Parse(data, path)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		in.Containers = append(in.Containers, c)
	}

	for _, c := range in.Containers {
		if err := in.Repo.RegisterContainer(c, flagSystem); err != nil {
			return nil, fmt.Errorf("registering %s: %w", c.Name, err)
		}
	}
	if err := in.Repo.CloseHierarchy(); err != nil {
		return nil, err
	}
	return in, nil
}

// Close releases the backing archive, if any.
func (in *input) Close() error {
	if in.Package != nil {
		return in.Package.Close()
	}
	return nil
}

// matchesFilter reports whether a class/method pair passes the
// --filter-class/--filter-method flags (an empty flag always matches).
func matchesFilter(className, methodName string) bool {
	if flagFilterClass != "" && !strings.Contains(className, flagFilterClass) {
		return false
	}
	if flagFilterMethod != "" && !strings.Contains(methodName, flagFilterMethod) {
		return false
	}
	return true
}
