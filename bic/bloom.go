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

package bic

import (
	"encoding/binary"
	"fmt"
	"math"

	"lukechampine.com/blake3"
)

// Sol-dedup bloom filter sizing, ported from
// original_source/.../consensus/bic/sol_bloom.rs. The filter lives in the
// KV store as PAGES separate PAGE_SIZE-bit pages so a single solution's
// set-bit mutations never touch more than a handful of pages.
const (
	BloomPages    = 256
	BloomPageSize = 65_536
	BloomM        = BloomPages * BloomPageSize
)

// SimulateFPR ports sol_bloom.rs::simulate_fpr.
func SimulateFPR(n, m, k float64) float64 {
	return math.Pow(1-math.Exp(-k*n/m), k)
}

// BloomSeg is a single bit position split into its page and in-page offset.
type BloomSeg struct {
	Page      uint64
	BitOffset uint64
}

// indicesFromDigest ports sol_bloom.rs::indices_from_digest: the 32-byte
// blake3 digest is read back-to-front in 16-byte little-endian u128 words,
// each reduced mod M.
func indicesFromDigest(digest [32]byte) []uint64 {
	out := make([]uint64, 0, 2)
	for start := len(digest) - 16; start >= 0; start -= 16 {
		lo := binary.LittleEndian.Uint64(digest[start : start+8])
		hi := binary.LittleEndian.Uint64(digest[start+8 : start+16])
		out = append(out, mod128By64(hi, lo, BloomM))
	}
	return out
}

// mod128By64 computes ((hi<<64)|lo) mod m for a 64-bit modulus m, without
// needing a full 128-bit division.
func mod128By64(hi, lo uint64, m uint64) uint64 {
	r := hi % m
	for i := 0; i < 64; i++ {
		r = (r << 1) % m
		if lo&(1<<63) != 0 {
			r = (r + 1) % m
		}
		lo <<= 1
	}
	return r
}

// HashToIndices ports sol_bloom.rs::hash_to_indices.
func HashToIndices(bin []byte) []uint64 {
	var digest [32]byte
	h := blake3.New(32, nil)
	h.Write(bin)
	copy(digest[:], h.Sum(nil))
	return indicesFromDigest(digest)
}

// SegsFromDigest ports sol_bloom.rs::segs_from_digest.
func SegsFromDigest(digest [32]byte) []BloomSeg {
	idxs := indicesFromDigest(digest)
	segs := make([]BloomSeg, len(idxs))
	for i, idx := range idxs {
		segs[i] = BloomSeg{Page: idx / BloomPageSize, BitOffset: idx % BloomPageSize}
	}
	return segs
}

// bloomPageKey is this engine's KV-backed realization of sol_bloom.rs's
// per-epoch pages: one bitmap per (epoch, page).
func bloomPageKey(epoch uint64, page uint64) []byte {
	return []byte(fmt.Sprintf("bic:epoch:%d:sol_bloom:%d", epoch, page))
}
