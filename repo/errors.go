// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package repo

import "errors"

var (
	// ErrUnknownClass is returned when a lookup names a class the
	// repository has never seen, not even as an undefined placeholder.
	ErrUnknownClass = errors.New("repo: unknown class")
	// ErrUnknownMethod is returned when a descriptor does not resolve to
	// any method in the repository.
	ErrUnknownMethod = errors.New("repo: unknown method")
	// ErrCyclicHierarchy is returned by CloseHierarchy if the extends/
	// implements graph contains a cycle.
	ErrCyclicHierarchy = errors.New("repo: hierarchy graph contains a cycle")
	// ErrHierarchyNotClosed is returned by queries that require
	// CloseHierarchy to have run first.
	ErrHierarchyNotClosed = errors.New("repo: hierarchy not closed")
	// ErrDuplicateClass is returned by RegisterContainer if two
	// containers define the same class name with conflicting bodies.
	ErrDuplicateClass = errors.New("repo: duplicate class definition")
)
