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

// Package sbat implements spec.md §4.D: the sparse binary authenticated
// tree used as the engine's state commitment. Every namespace (account,
// coin, nft, bic, ...) owns an independent 256-bit-path Merkle subtree;
// the top-level root folds the namespace roots in a fixed name order.
package sbat

import "lukechampine.com/blake3"

// ZeroHash is the fixed commitment of an empty subtree (spec.md Open
// Question (a), resolved to blake3 — see DESIGN.md).
var ZeroHash [32]byte

func hash(parts ...[]byte) [32]byte {
	h := blake3.New(32, nil)
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// leafPath is the 256-bit trie path a (namespace,key) pair walks: a
// namespace-scoped hash of the key, so that distinct namespaces never
// collide on the same path even with equal keys.
func leafPath(namespace string, key []byte) [32]byte {
	return hash([]byte(namespace), key)
}

// leafHash is a leaf's commitment: the hash of its stored (key, value).
func leafHash(key, value []byte) [32]byte {
	return hash(key, value)
}

// internalHash commits an internal node to its two children, each
// defaulting to ZeroHash when empty.
func internalHash(left, right [32]byte) [32]byte {
	return hash(left[:], right[:])
}

// namespaceRoot folds a fixed-order list of (namespace, root) pairs into
// the single top-level SBAT root (§4.D: "Root is the hash of the
// top-level namespace directory in fixed name order").
func namespaceRoot(roots []namedRoot) [32]byte {
	h := blake3.New(32, nil)
	for _, r := range roots {
		h.Write([]byte(r.namespace))
		h.Write(r.root[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

type namedRoot struct {
	namespace string
	root      [32]byte
}
