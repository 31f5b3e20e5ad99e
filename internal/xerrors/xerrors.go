// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.
//
// The ai4all-network coordinator is free software: you can redistribute it
// and/or modify it under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The ai4all-network coordinator is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ai4all-network coordinator. If not, see
// <http://www.gnu.org/licenses/>.

// Package xerrors holds the typed-result error taxonomy described in
// spec.md section 9: pure components return one of these kinds rather
// than panicking, except for InvariantBug which is a process bug.
package xerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error into the taxonomy the coordinator uses to
// decide whether a day survives the failure.
type Kind int

const (
	// InvalidInput is a client mistake: malformed request, an out of
	// range field, an unknown id, a duplicate registration.
	InvalidInput Kind = iota
	// NotFound names a missing entity (unknown contributor, missing day).
	NotFound
	// StateConflict is a coordinator state-machine violation (start in
	// non-IDLE, finalize in non-ACTIVE).
	StateConflict
	// IntegrityViolation reports a replay/hash-chain/snapshot mismatch
	// without modifying persisted data.
	IntegrityViolation
	// InvariantBug marks an implementation bug (e.g. Σshares != pool).
	// Callers that see this kind should treat it as fatal.
	InvariantBug
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case StateConflict:
		return "StateConflict"
	case IntegrityViolation:
		return "IntegrityViolation"
	case InvariantBug:
		return "InvariantBug"
	default:
		return "Unknown"
	}
}

// Error is a typed, stack-carrying error. It wraps github.com/pkg/errors
// so callers retain a stack trace the way the teacher's storage and
// consensus packages do.
type Error struct {
	Kind Kind
	Op   string
	err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a typed error, attaching a stack trace via pkg/errors.
func New(kind Kind, op string, msg string) *Error {
	return &Error{Kind: kind, Op: op, err: errors.New(msg)}
}

// Wrap attaches a stack trace to err and tags it with kind/op.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, err: errors.WithStack(err)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	te, ok := err.(*Error)
	return ok && te.Kind == kind
}
