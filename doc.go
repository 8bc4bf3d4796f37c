// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package dex parses and re-emits the register-based bytecode container
// format used by installable Android packages: a multi-section binary
// holding string/type/proto/field/method tables, class definitions, code
// items with try/catch tables, and debug info.
//
// The package favors a format-faithful, round-trip-preserving parse over
// a convenience API: callers that only need a cross-container view should
// build a *repo.Repository from the parsed containers instead of walking
// container internals directly.
package dex
