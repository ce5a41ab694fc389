// Copyright 2024 The amacore Authors
// This file is part of the amacore engine.
//
// The amacore engine is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The amacore engine is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the amacore engine. If not, see <http://www.gnu.org/licenses/>.

// Package engerr defines the stable, short, snake_case abort identifiers
// used across the apply pipeline, the KV facade, BIC handlers and the
// guest VM. An Abort is the typed replacement for the source's
// stack-unwinding panic: it is returned, never thrown, and carries no
// payload beyond the identifier so that two nodes which disagree on
// everything else still agree byte-for-byte on why a tx failed.
package engerr

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Abort is a fatal-to-the-transaction condition identified by a short
// stable string. It satisfies the error interface so it can flow through
// normal Go control flow, but callers that need to persist or compare the
// identifier should use ID() rather than Error().
type Abort struct {
	id    string
	cause error
	fatal bool
}

// New creates an Abort with the given stable identifier.
func New(id string) *Abort {
	return &Abort{id: id}
}

// NewFatal creates an Abort that must abort the entire entry, not just the
// current transaction (§7 kind 5, e.g. a kv_increment integer overflow).
func NewFatal(id string) *Abort {
	return &Abort{id: id, fatal: true}
}

// WrapFatal is Wrap for a condition that must abort the entire entry
// (§7 kind 5), e.g. the KV backend itself failing mid-replay.
func WrapFatal(id string, cause error) *Abort {
	return &Abort{id: id, cause: errors.WithStack(cause), fatal: true}
}

// Wrap attaches a stack-carrying cause (via github.com/pkg/errors) to an
// identifier, for logging only; the cause never changes the identifier
// two nodes compare against.
func Wrap(id string, cause error) *Abort {
	return &Abort{id: id, cause: errors.WithStack(cause)}
}

// Fatal reports whether err is an Abort that must abort the whole entry
// rather than just the transaction that raised it.
func Fatal(err error) bool {
	var a *Abort
	if stderrors.As(err, &a) {
		return a.fatal
	}
	return false
}

func (a *Abort) Error() string {
	if a.cause != nil {
		return a.id + ": " + a.cause.Error()
	}
	return a.id
}

// ID returns the bare stable identifier, the only part of an Abort that
// is ever journaled, compared, or placed in a receipt.
func (a *Abort) ID() string { return a.id }

// Is reports whether err is an Abort with the given identifier.
func Is(err error, id string) bool {
	var a *Abort
	if stderrors.As(err, &a) {
		return a.id == id
	}
	return false
}

// IDOf extracts the stable identifier from err, or "" if err is not an
// Abort.
func IDOf(err error) string {
	var a *Abort
	if stderrors.As(err, &a) {
		return a.id
	}
	return ""
}

// Stable identifiers referenced by name in spec.md §6-§8. Subsystem
// packages may define additional identifiers local to their own faults;
// these are the ones shared across package boundaries.
const (
	OK = "ok"

	InvalidArgs       = "invalid_args"
	InvalidAmount     = "invalid_amount"
	InsufficientFunds = "insufficient_funds"
	Paused            = "paused"
	Soulbound         = "soulbound"
	SymbolReserved    = "symbol_reserved"

	ExecInsufficientExecBudget    = "exec_insufficient_exec_budget"
	ExecInsufficientStorageBudget = "exec_insufficient_storage_budget"
	ExecCannotWriteDuringView     = "exec_cannot_write_during_view"
	ExecKVIncrementOverflow       = "exec_kv_increment_integer_overflow"

	WasmInvalidModule         = "wasm_invalid_module"
	WasmLogsTotalSizeExceeded = "wasm_logs_total_size_exceeded"
)
