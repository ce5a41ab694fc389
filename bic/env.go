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

// Package bic implements spec.md §4.G: the built-in contracts dispatched
// by symbolic (non-pubkey-shaped) contract names, ported from
// original_source/ex/native/rdb/src/consensus/bic/*.rs.
package bic

import (
	"math/big"

	"github.com/amacore/engine/kvstore"
	"github.com/amacore/engine/prng"
)

// CallerEnv mirrors the per-tx fields the source ecosystem's CallerEnv
// struct (consensus_apply.rs) carries through a single BIC or guest-VM
// call. Only the fields BIC handlers read or write live here; the guest
// VM's own copy (vm package) adds the low-memory layout on top.
type CallerEnv struct {
	EntrySigner   []byte
	EntryPrevHash []byte
	EntrySlot     uint64
	EntryPrevSlot uint64
	EntryHeight   uint64
	EntryEpoch    uint64
	EntryVR       []byte
	EntryVRBlake3 []byte
	EntryDR       []byte

	TxIndex uint64
	TxSigner []byte
	TxNonce  uint64
	TxHash   []byte

	AccountOrigin  []byte
	AccountCaller  []byte
	AccountCurrent []byte

	AttachedSymbol string
	AttachedAmount string
	HasAttachment  bool

	Seed   []byte
	SeedF64 float64

	CallDepth int
}

// Env is the handler-facing execution context: a KV facade over the
// current tx's mutation journal plus the CallerEnv fields a handler may
// read. bic handlers never see the apply package's ApplyEnv directly —
// only this narrower view, mirroring how consensus/epoch.go takes a
// minimal local interface rather than importing kvstore's full surface.
type Env struct {
	KV     *kvstore.Facade
	Caller *CallerEnv
	RNG    *prng.State
}

// NewEnv constructs an Env around an already-opened KV facade, the
// current tx's CallerEnv, and the block's shared PRNG state (used by
// Epoch.SubmitSol's Freivalds check).
func NewEnv(kv *kvstore.Facade, caller *CallerEnv, rng *prng.State) *Env {
	return &Env{KV: kv, Caller: caller, RNG: rng}
}

func bcat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func parseI128(b []byte) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(string(b), 10)
	return v, ok
}

func i128String(v *big.Int) []byte { return []byte(v.String()) }

func isAsciiAlnum(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func filterAsciiAlnum(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if isAsciiAlnum(c) {
			out = append(out, c)
		}
	}
	return out
}

func asciiUpper(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
