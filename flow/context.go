// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/dataflow"
	"github.com/saferwall/dex/repo"
	"github.com/saferwall/dex/typecheck"
)

// javaLangReflectArray stands in for an array's implicit method-
// resolution class: arrays have no named declaring class of their own,
// but their inherited methods (equals, hashCode, ...) resolve as if
// declared on this type, matching how this instantiation's original
// treats an invoke-virtual receiver statically typed as an array.
const javaLangReflectArray = "Ljava/lang/reflect/Array;"

// Extra is this package's dataflow.Context.Extra payload: the settled
// type-analysis result for the method under analysis, needed to resolve
// an invoke-virtual/interface/super receiver's possible classes, and
// the signatures already computed for other methods during the current
// fixpoint, needed to inject a callee's summary at its call sites. A
// method absent from Signatures is treated as not yet analysed, not as
// an error -- the call site simply contributes no flows this round.
type Extra struct {
	Typecheck  *dataflow.Result
	Signatures map[repo.MethodUid]*Signature
}

func extraOf(ctx *dataflow.Context) *Extra {
	e, _ := ctx.Extra.(*Extra)
	return e
}

// receiverClasses resolves the declared object type(s) the type-
// analysis pass computed for reg at addr's entry state, the candidate
// set repo.LookupVirtualCall/LookupSuperCall dispatch against.
func receiverClasses(ctx *dataflow.Context, addr dex.Addr, reg dex.Reg) []string {
	e := extraOf(ctx)
	if e == nil || e.Typecheck == nil {
		return nil
	}
	entry, ok := e.Typecheck.Entries[addr]
	if !ok {
		return nil
	}
	ts, ok := entry.(typecheck.State)
	if !ok {
		return nil
	}
	t, ok := ts.Regs[reg]
	if !ok {
		return nil
	}
	switch t.Kind {
	case typecheck.Object:
		return t.Classes
	case typecheck.Array:
		return []string{javaLangReflectArray}
	default:
		return nil
	}
}

func signatureOf(ctx *dataflow.Context, m repo.MethodUid) (*Signature, bool) {
	e := extraOf(ctx)
	if e == nil || e.Signatures == nil {
		return nil, false
	}
	sig, ok := e.Signatures[m]
	return sig, ok
}
