// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package apk opens installable Android packages: a zip archive holding
// one or more bytecode containers, a binary manifest, and a resource
// table. The archive format itself is out of the analysis core's scope;
// this package supplies just enough of a read/write surface for the
// core to enumerate containers and resolve manifest attributes.
package apk

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/edsrzf/mmap-go"
	kzip "github.com/klauspost/compress/flate"
)

// classesDexName is the conventional entry name for the primary
// bytecode container; multidex archives add classes2.dex, classes3.dex,
// and so on.
const classesDexName = "classes.dex"

// Entry is one archive member, kept around so Package can re-emit it
// unmodified or patched, preserving its original compression method.
type Entry struct {
	Name     string
	Method   uint16
	Data     []byte
	Modified bool
}

// Package wraps a parsed APK: its raw entries, the extracted manifest,
// and the signing certificates if present.
type Package struct {
	Path     string
	entries  map[string]*Entry
	order    []string
	mapping  mmap.MMap
	f        *os.File
	Manifest *Manifest
	Anomalies []string
}

// Open reads path's central directory through a memory map, the same
// zero-copy-on-read posture the container codec takes for large files,
// and decompresses every entry into memory (the archive itself is
// usually a few megabytes, small enough that staging it in memory buys
// simple random access for the manifest/resource readers).
func Open(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("apk: %s is empty", path)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(m), int64(len(m)))
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}

	p := &Package{
		Path:    path,
		entries: make(map[string]*Entry, len(zr.File)),
		mapping: m,
		f:       f,
	}

	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			p.Anomalies = append(p.Anomalies, fmt.Sprintf("entry %s: %v", zf.Name, err))
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			p.Anomalies = append(p.Anomalies, fmt.Sprintf("entry %s: %v", zf.Name, err))
			continue
		}
		p.entries[zf.Name] = &Entry{Name: zf.Name, Method: zf.Method, Data: data}
		p.order = append(p.order, zf.Name)
	}

	if manifestData, ok := p.entries["AndroidManifest.xml"]; ok {
		mf, err := ParseManifest(manifestData.Data)
		if err != nil {
			p.Anomalies = append(p.Anomalies, fmt.Sprintf("manifest: %v", err))
		} else {
			p.Manifest = mf
		}
	}

	return p, nil
}

// Close releases the backing file mapping.
func (p *Package) Close() error {
	if p.mapping != nil {
		if err := p.mapping.Unmap(); err != nil {
			return err
		}
	}
	if p.f != nil {
		return p.f.Close()
	}
	return nil
}

// ContainerNames returns the primary container plus any multidex
// siblings, in load order (classes.dex, classes2.dex, ...).
func (p *Package) ContainerNames() []string {
	var names []string
	if _, ok := p.entries[classesDexName]; ok {
		names = append(names, classesDexName)
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("classes%d.dex", i)
		if _, ok := p.entries[name]; !ok {
			break
		}
		names = append(names, name)
	}
	return names
}

// Container returns the raw bytes of a named bytecode entry.
func (p *Package) Container(name string) ([]byte, bool) {
	e, ok := p.entries[name]
	if !ok {
		return nil, false
	}
	return e.Data, true
}

// Replace stages new bytes for an existing entry; Write re-deflates it
// with the same compression method it was read with.
func (p *Package) Replace(name string, data []byte) error {
	e, ok := p.entries[name]
	if !ok {
		return fmt.Errorf("apk: no such entry %q", name)
	}
	e.Data = data
	e.Modified = true
	return nil
}

// Write re-emits every entry to w, preserving original entry order and
// compression method: stored entries are written stored, and every
// deflated entry, whether touched by Replace or not, is compressed again.
func (p *Package) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return kzip.NewWriter(out, flate.DefaultCompression)
	})
	defer zw.Close()

	for _, name := range p.order {
		e := p.entries[name]
		fh := &zip.FileHeader{Name: name, Method: e.Method}
		fw, err := zw.CreateHeader(fh)
		if err != nil {
			return err
		}
		if _, err := fw.Write(e.Data); err != nil {
			return err
		}
	}
	return nil
}

// WalkAssets lists every entry under a given archive prefix ("res/",
// "assets/", "lib/"), the same top-down directory walk the command-line
// tool does over PE resource directories.
func (p *Package) WalkAssets(prefix string) []string {
	var names []string
	for _, name := range p.order {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}

// IsDirectory reports whether name looks like a directory entry within
// the archive namespace, mirroring the teacher's own isDirectory helper
// generalized from the filesystem to the zip entry namespace.
func IsDirectory(name string) bool {
	return strings.HasSuffix(name, "/") || path.Ext(name) == ""
}
