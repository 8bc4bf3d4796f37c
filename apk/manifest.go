// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apk

const (
	attrTypeReference = 0x01
	attrTypeString    = 0x03
	attrTypeIntDec    = 0x10
	attrTypeBoolean   = 0x12
)

// Manifest is a read-through view over the decoded AndroidManifest.xml
// element tree: callers ask for a tag family ("activity", "service", ...)
// or a top-level flag, and get back whatever the binary XML resolved
// without consulting the resource table. An attribute whose value is a
// resource reference (style/theme-driven booleans, localized strings)
// cannot be resolved without the resource table this package does not
// parse; those accessors report ok=false rather than guessing.
type Manifest struct {
	doc *axmlDoc
}

// ParseManifest decodes raw as a binary XML manifest.
func ParseManifest(raw []byte) (*Manifest, error) {
	doc, err := parseAXML(raw)
	if err != nil {
		return nil, err
	}
	return &Manifest{doc: doc}, nil
}

// Tag is one manifest element of interest: its name plus its resolved
// string attributes, matching the spec's notion of the manifest as a
// read-through map of named tags.
type Tag struct {
	Name  string
	Attrs map[string]string
}

func (m *Manifest) tagsNamed(name string) []Tag {
	var out []Tag
	for _, el := range m.doc.Elements {
		if el.Name != name {
			continue
		}
		t := Tag{Name: el.Name, Attrs: map[string]string{}}
		for _, a := range el.Attrs {
			if a.DataType == attrTypeString {
				t.Attrs[a.Name] = a.RawValue
			}
		}
		out = append(out, t)
	}
	return out
}

// Permissions returns every <uses-permission> tag's resolved attributes.
func (m *Manifest) Permissions() []Tag { return m.tagsNamed("uses-permission") }

// Activities returns every <activity> tag.
func (m *Manifest) Activities() []Tag { return m.tagsNamed("activity") }

// Services returns every <service> tag.
func (m *Manifest) Services() []Tag { return m.tagsNamed("service") }

// Receivers returns every <receiver> tag.
func (m *Manifest) Receivers() []Tag { return m.tagsNamed("receiver") }

// Providers returns every <provider> tag.
func (m *Manifest) Providers() []Tag { return m.tagsNamed("provider") }

// Features returns every <uses-feature> tag.
func (m *Manifest) Features() []Tag { return m.tagsNamed("uses-feature") }

// UsesSDK returns the single <uses-sdk> tag, if present.
func (m *Manifest) UsesSDK() (Tag, bool) {
	tags := m.tagsNamed("uses-sdk")
	if len(tags) == 0 {
		return Tag{}, false
	}
	return tags[0], true
}

// PackageName returns the manifest root's package attribute.
func (m *Manifest) PackageName() (string, bool) {
	if len(m.doc.Elements) == 0 || m.doc.Elements[0].Name != "manifest" {
		return "", false
	}
	return attrString(m.doc.Elements[0], "package")
}

// VersionName returns android:versionName off the manifest root.
func (m *Manifest) VersionName() (string, bool) {
	if len(m.doc.Elements) == 0 {
		return "", false
	}
	return attrString(m.doc.Elements[0], "versionName")
}

// applicationTag locates the single <application> element.
func (m *Manifest) applicationTag() (axmlElement, bool) {
	for _, el := range m.doc.Elements {
		if el.Name == "application" {
			return el, true
		}
	}
	return axmlElement{}, false
}

// AllowBackup resolves android:allowBackup on <application>.
func (m *Manifest) AllowBackup() (bool, bool) {
	app, ok := m.applicationTag()
	if !ok {
		return false, false
	}
	return attrBool(app, "allowBackup")
}

// Debuggable resolves android:debuggable on <application>.
func (m *Manifest) Debuggable() (bool, bool) {
	app, ok := m.applicationTag()
	if !ok {
		return false, false
	}
	return attrBool(app, "debuggable")
}

// UsesCleartextTraffic resolves android:usesCleartextTraffic on
// <application>.
func (m *Manifest) UsesCleartextTraffic() (bool, bool) {
	app, ok := m.applicationTag()
	if !ok {
		return false, false
	}
	return attrBool(app, "usesCleartextTraffic")
}

// NetworkSecurityConfig returns android:networkSecurityConfig off
// <application> when the attribute is stored as a plain string; a
// resource-reference-typed value reports ok=false, like every other
// accessor here. The value is returned as is: neither this package nor
// the nsc CLI verb opens the resource it names.
func (m *Manifest) NetworkSecurityConfig() (string, bool) {
	app, ok := m.applicationTag()
	if !ok {
		return "", false
	}
	return attrString(app, "networkSecurityConfig")
}

func attrString(el axmlElement, name string) (string, bool) {
	for _, a := range el.Attrs {
		if a.Name != name {
			continue
		}
		switch a.DataType {
		case attrTypeString:
			return a.RawValue, true
		default:
			return "", false
		}
	}
	return "", false
}

func attrBool(el axmlElement, name string) (bool, bool) {
	for _, a := range el.Attrs {
		if a.Name != name {
			continue
		}
		switch a.DataType {
		case attrTypeBoolean:
			return a.Data != 0, true
		case attrTypeIntDec:
			return a.Data != 0, true
		default:
			return false, false
		}
	}
	return false, false
}
