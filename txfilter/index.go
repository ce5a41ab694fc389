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

// Package txfilter implements spec.md §4.K: an eight-projection hash
// index over each transaction's (signer, first argument, contract,
// function) tuple, so an external explorer can look transactions up by
// any of those fields without a full scan. It is produced alongside
// apply but never queried by the apply driver itself.
package txfilter

import (
	"strconv"

	"lukechampine.com/blake3"

	"github.com/amacore/engine/model"
)

// Key-shape constants ported from original_source's tx_filter.rs.
// NonceDigits is wide enough for the full uint64 range (20 decimal
// digits), which alone already exceeds spec.md's stated 17-byte key
// width — the real shape is HashPrefixSize+1+NonceDigits = 37 bytes.
const (
	HashPrefixSize = 16
	NonceDigits    = 20
	KeySize        = HashPrefixSize + 1 + NonceDigits
)

var zero = []byte{0}

// Key is one of the eight projection keys plus the tx hash it points at.
type Key struct {
	Key    [KeySize]byte
	TxHash []byte
}

// hashPrefix ports tx_filter.rs::create_filter_key: a 16-byte blake3 XOF
// digest over the concatenation of parts.
func hashPrefix(parts ...[]byte) [HashPrefixSize]byte {
	h := blake3.New(HashPrefixSize, nil)
	for _, p := range parts {
		h.Write(p)
	}
	var out [HashPrefixSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// paddedNonce ports tx_filter.rs::write_padded_nonce: a fixed-width,
// zero-padded base-10 rendering of nonce.
func paddedNonce(nonce uint64) [NonceDigits]byte {
	var buf [NonceDigits]byte
	for i := range buf {
		buf[i] = '0'
	}
	s := strconv.FormatUint(nonce, 10)
	copy(buf[NonceDigits-len(s):], s)
	return buf
}

func buildKey(nonce [NonceDigits]byte, parts ...[]byte) [KeySize]byte {
	var out [KeySize]byte
	prefix := hashPrefix(parts...)
	copy(out[0:HashPrefixSize], prefix[:])
	out[HashPrefixSize] = ':'
	copy(out[HashPrefixSize+1:], nonce[:])
	return out
}

// BuildTxHashFilters ports tx_filter.rs::build_tx_hashfilters for a
// single tx: the eight (signer?, first_arg?, contract?, function?)
// projection keys, each paired with the tx's hash.
func BuildTxHashFilters(txu model.TXU) []Key {
	nonce := paddedNonce(txu.TX.Nonce)
	signer := txu.TX.Signer
	contract := txu.TX.Action.Contract
	function := []byte(txu.TX.Action.Function)

	arg0 := zero
	if len(txu.TX.Action.Args) > 0 {
		arg0 = txu.TX.Action.Args[0]
	}

	tuples := [8][4][]byte{
		{signer, zero, zero, zero},
		{zero, arg0, zero, zero},
		{signer, arg0, zero, zero},
		{signer, zero, contract, zero},
		{signer, zero, contract, function},
		{zero, arg0, contract, zero},
		{zero, arg0, contract, function},
		{signer, arg0, contract, function},
	}

	out := make([]Key, 8)
	for i, t := range tuples {
		out[i] = Key{Key: buildKey(nonce, t[0], t[1], t[2], t[3]), TxHash: txu.Hash}
	}
	return out
}

// BuildBatch ports tx_filter.rs::build_tx_hashfilters over a whole
// entry's worth of transactions.
func BuildBatch(txus []model.TXU) []Key {
	out := make([]Key, 0, len(txus)*8)
	for _, txu := range txus {
		out = append(out, BuildTxHashFilters(txu)...)
	}
	return out
}
