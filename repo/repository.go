// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package repo

import (
	"fmt"
	"sort"

	"github.com/saferwall/dex"
)

// Repository is the cross-container class hierarchy, field/method table,
// and UID allocator. It is mutable only until CloseHierarchy runs; every
// query below assumes the hierarchy is closed.
type Repository struct {
	classUIDs  *uidAllocator
	methodUIDs *uidAllocator
	fieldUIDs  *uidAllocator

	classes    map[string]*Class
	classByUID map[ClassUid]*Class
	methods    map[MethodUid]*Method
	fields     map[FieldUid]*Field

	hierarchy *Hierarchy
}

// New returns an empty repository ready to receive containers.
func New() *Repository {
	return &Repository{
		classUIDs:  newUIDAllocator(),
		methodUIDs: newUIDAllocator(),
		fieldUIDs:  newUIDAllocator(),
		classes:    map[string]*Class{},
		classByUID: map[ClassUid]*Class{},
		methods:    map[MethodUid]*Method{},
		fields:     map[FieldUid]*Field{},
		hierarchy:  newHierarchy(),
	}
}

// RegisterContainer enumerates every class def in c, allocating UIDs for
// the class and each of its fields and methods, and wiring the
// superclass/interface edges. isSystem marks every class from this
// container as platform/library rather than application code.
func (r *Repository) RegisterContainer(c *dex.Container, isSystem bool) error {
	for _, cd := range c.ClassDefs {
		name, err := c.TypeName(cd.ClassIdx)
		if err != nil {
			return fmt.Errorf("repo: resolving class name: %w", err)
		}
		class := r.getOrCreateClass(name)
		if !class.Undefined && class.Container != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateClass, name)
		}
		class.Undefined = false
		class.Container = c
		class.System = isSystem

		if cd.SuperclassIdx != dex.NoIndex {
			superName, err := c.TypeName(cd.SuperclassIdx)
			if err == nil {
				class.SuperclassName = superName
				r.getOrCreateClass(superName)
				if err := r.hierarchy.addEdge(name, superName); err != nil {
					return err
				}
			}
		}
		if tl, ok := c.TypeList(cd.InterfacesOff); ok {
			for _, tIdx := range tl.Types {
				ifaceName, err := c.TypeName(uint32(tIdx))
				if err != nil {
					continue
				}
				class.InterfaceNames = append(class.InterfaceNames, ifaceName)
				r.getOrCreateClass(ifaceName)
				if err := r.hierarchy.addEdge(name, ifaceName); err != nil {
					return err
				}
			}
		}

		data, ok := c.ClassDataAt(cd.ClassDataOff)
		if !ok {
			continue
		}
		r.registerFields(class, c, data.StaticFields)
		r.registerFields(class, c, data.InstanceFields)
		r.registerMethods(class, c, data.DirectMethods)
		r.registerMethods(class, c, data.VirtualMethods)
	}
	return nil
}

func (r *Repository) getOrCreateClass(name string) *Class {
	if c, ok := r.classes[name]; ok {
		return c
	}
	c := &Class{UID: ClassUid(r.classUIDs.allocate()), Name: name, Undefined: true}
	r.classes[name] = c
	r.classByUID[c.UID] = c
	return c
}

func (r *Repository) registerFields(class *Class, c *dex.Container, fields []dex.EncodedField) {
	for _, ef := range fields {
		if int(ef.FieldIdx) >= len(c.FieldIDs) {
			continue
		}
		fid := c.FieldIDs[ef.FieldIdx]
		name, _ := c.String(fid.NameIdx)
		typ, _ := c.TypeName(uint32(fid.TypeIdx))
		f := &Field{
			UID:    FieldUid(r.fieldUIDs.allocate()),
			Class:  class.UID,
			Name:   name,
			Type:   typ,
			Access: ef.AccessFlags,
		}
		r.fields[f.UID] = f
		class.Fields = append(class.Fields, f.UID)
	}
}

func (r *Repository) registerMethods(class *Class, c *dex.Container, methods []dex.EncodedMethod) {
	for _, em := range methods {
		if int(em.MethodIdx) >= len(c.MethodIDs) {
			continue
		}
		mid := c.MethodIDs[em.MethodIdx]
		name, _ := c.String(mid.NameIdx)
		descr := MethodDescr{ClassName: class.Name, Name: name}
		if int(mid.ProtoIdx) < len(c.ProtoIDs) {
			proto := c.ProtoIDs[mid.ProtoIdx]
			descr.ReturnType, _ = c.TypeName(proto.ReturnTypeIdx)
			if tl, ok := c.TypeList(proto.ParametersOff); ok {
				for _, pIdx := range tl.Types {
					pt, _ := c.TypeName(uint32(pIdx))
					descr.ParamTypes = append(descr.ParamTypes, pt)
				}
			}
		}
		m := &Method{
			UID:     MethodUid(r.methodUIDs.allocate()),
			Class:   class.UID,
			Descr:   descr,
			Access:  em.AccessFlags,
			CodeOff: em.CodeOff,
			Dex:     c,
		}
		r.methods[m.UID] = m
		class.Methods = append(class.Methods, m.UID)
	}
}

// CloseHierarchy synthesises the root class if none is provided, points
// every still-rootless class at it, and makes the repository read-only.
func (r *Repository) CloseHierarchy() error {
	return r.hierarchy.close(r.classes)
}

// IterClasses returns every known class, application and system alike,
// in a stable order (by name).
func (r *Repository) IterClasses() []*Class {
	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*Class, len(names))
	for i, n := range names {
		out[i] = r.classes[n]
	}
	return out
}

// IterClassMethods returns every method owned by class, in a stable
// order (by UID).
func (r *Repository) IterClassMethods(class *Class) []*Method {
	uids := append([]MethodUid{}, class.Methods...)
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	out := make([]*Method, 0, len(uids))
	for _, u := range uids {
		out = append(out, r.methods[u])
	}
	return out
}

// GetClassByName looks up a class by its fully-qualified name.
func (r *Repository) GetClassByName(name string) (*Class, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// Method returns the method with the given UID.
func (r *Repository) Method(u MethodUid) (*Method, bool) {
	m, ok := r.methods[u]
	return m, ok
}

// Field returns the field with the given UID.
func (r *Repository) Field(u FieldUid) (*Field, bool) {
	f, ok := r.fields[u]
	return f, ok
}

// FindMethodByDescriptor resolves a descriptor against the defining
// class's own method table only — no inheritance walk.
func (r *Repository) FindMethodByDescriptor(d MethodDescr) (*Method, bool) {
	class, ok := r.classes[d.ClassName]
	if !ok {
		return nil, false
	}
	for _, uid := range class.Methods {
		m := r.methods[uid]
		if descrMatches(m.Descr, d) {
			return m, true
		}
	}
	return nil, false
}

func descrMatches(a, b MethodDescr) bool {
	if a.Name != b.Name || a.ReturnType != b.ReturnType || len(a.ParamTypes) != len(b.ParamTypes) {
		return false
	}
	for i := range a.ParamTypes {
		if a.ParamTypes[i] != b.ParamTypes[i] {
			return false
		}
	}
	return true
}

// LookupInstanceField walks from class up through its superclasses,
// returning the first non-static field matching (name, type).
func (r *Repository) LookupInstanceField(name, typ string, class *Class) (*Field, bool) {
	return r.lookupField(name, typ, class, false)
}

// LookupStaticField is LookupInstanceField restricted to static fields.
func (r *Repository) LookupStaticField(name, typ string, class *Class) (*Field, bool) {
	return r.lookupField(name, typ, class, true)
}

func (r *Repository) lookupField(name, typ string, class *Class, static bool) (*Field, bool) {
	for c := class; c != nil; {
		for _, uid := range c.Fields {
			f := r.fields[uid]
			if f.Name == name && f.Type == typ && f.IsStatic() == static {
				return f, true
			}
		}
		if c.SuperclassName == "" {
			break
		}
		next, ok := r.classes[c.SuperclassName]
		if !ok {
			break
		}
		c = next
	}
	return nil, false
}

// IsTypeableAs reports whether sub has any path of extends/implements
// edges to super (or is super itself).
func (r *Repository) IsTypeableAs(sub, super string) bool {
	return r.hierarchy.isAncestor(sub, super)
}

// IsInherited reports whether some superclass of d.ClassName defines a
// method with the same name/signature.
func (r *Repository) IsInherited(d MethodDescr) bool {
	class, ok := r.classes[d.ClassName]
	if !ok {
		return false
	}
	anc, err := r.hierarchy.ancestors(class.Name)
	if err != nil {
		return false
	}
	for _, a := range anc {
		if a == class.Name {
			continue
		}
		if _, ok := r.FindMethodByDescriptor(MethodDescr{a, d.Name, d.ParamTypes, d.ReturnType}); ok {
			return true
		}
	}
	return false
}

// LeastCommonTypes returns the minimal set of classes reachable from
// both a and b via the extends/implements closure such that no element
// is an ancestor of another.
func (r *Repository) LeastCommonTypes(a, b string) []string {
	ancA, _ := r.hierarchy.ancestors(a)
	ancA = append(ancA, a)
	ancB, _ := r.hierarchy.ancestors(b)
	ancB = append(ancB, b)

	bSet := make(map[string]bool, len(ancB))
	for _, n := range ancB {
		bSet[n] = true
	}
	var common []string
	for _, n := range ancA {
		if bSet[n] {
			common = append(common, n)
		}
	}
	var minimal []string
	for _, n := range common {
		isAncestorOfOther := false
		for _, m := range common {
			if n != m && r.hierarchy.isAncestor(m, n) && m != n {
				isAncestorOfOther = true
				break
			}
		}
		if !isAncestorOfOther {
			minimal = append(minimal, n)
		}
	}
	sort.Strings(minimal)
	return minimal
}

// LookupVirtualCall enumerates all concrete implementations reachable
// from each receiver class that match descr, deduplicated by UID.
func (r *Repository) LookupVirtualCall(d MethodDescr, receivers []string) []MethodUid {
	seen := map[MethodUid]bool{}
	var out []MethodUid
	for _, recv := range receivers {
		class, ok := r.classes[recv]
		if !ok {
			continue
		}
		if m, ok := r.resolveFromClassUpward(class, d); ok && !seen[m.UID] {
			seen[m.UID] = true
			out = append(out, m.UID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LookupSuperCall is LookupVirtualCall restricted to strict superclasses
// of each receiver.
func (r *Repository) LookupSuperCall(d MethodDescr, receivers []string) []MethodUid {
	seen := map[MethodUid]bool{}
	var out []MethodUid
	for _, recv := range receivers {
		class, ok := r.classes[recv]
		if !ok || class.SuperclassName == "" {
			continue
		}
		super, ok := r.classes[class.SuperclassName]
		if !ok {
			continue
		}
		if m, ok := r.resolveFromClassUpward(super, d); ok && !seen[m.UID] {
			seen[m.UID] = true
			out = append(out, m.UID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// resolveFromClassUpward walks class and its ancestors nearest-first
// (including interfaces, since interface edges participate in the same
// hierarchy traversal), returning the first defined method matching d —
// the closest override wins, not an arbitrary or alphabetically-first
// definition further up the hierarchy.
func (r *Repository) resolveFromClassUpward(class *Class, d MethodDescr) (*Method, bool) {
	anc, err := r.hierarchy.orderedAncestors(class.Name)
	if err != nil {
		anc = nil
	}
	order := append([]string{class.Name}, anc...)
	for _, name := range order {
		if _, ok := r.classes[name]; !ok {
			continue
		}
		if m, ok := r.FindMethodByDescriptor(MethodDescr{name, d.Name, d.ParamTypes, d.ReturnType}); ok {
			return m, true
		}
	}
	return nil, false
}
