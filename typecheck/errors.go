// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typecheck

import (
	"errors"
	"fmt"

	"github.com/saferwall/dex"
)

// ErrUnresolvedRef is recorded when an instruction references a field,
// method or type index the container cannot resolve (a malformed or
// truncated container, not an ordinary missing-class situation — that
// is the repository's and callgraph's concern, not this package's).
var ErrUnresolvedRef = errors.New("typecheck: unresolved constant-pool reference")

// TypeError is one failed subtyping check, recorded at the address it
// occurred at.
type TypeError struct {
	Addr     dex.Addr
	Found    Type
	Expected Type
}

func (e TypeError) Error() string {
	return fmt.Sprintf("typecheck: at %s: %s is not a subtype of %s", e.Addr, e.Found, e.Expected)
}

// notASubtype builds a TypeError if found is not a subtype of expected,
// else returns nil.
func notASubtype(addr dex.Addr, found, expected Type, ok bool) *TypeError {
	if ok {
		return nil
	}
	return &TypeError{Addr: addr, Found: found, Expected: expected}
}
