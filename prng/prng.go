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

// Package prng is spec.md §4.I: a bit-exact port of the source
// ecosystem's Xorshift116** generator (Erlang/Elixir's :exsss algorithm,
// also the algorithm behind Enum.shuffle/1's default PRNG), so block
// application is byte-for-byte reproducible against the protocol's own
// consensus-seeded randomness.
package prng

import (
	"encoding/binary"
	"sort"
)

const mask58 = (uint64(1) << 58) - 1

// State holds the two 58-bit Xorshift116** state words. The zero value
// is not a valid generator; use New or NewFromSeed.
type State struct {
	s0, s1 uint64
}

// splitmix64Next is one step of SplitMix64, used only to expand a raw
// seed into the two 58-bit state words.
func splitmix64Next(x0 uint64) (z, x uint64) {
	x = x0 + 0x9e3779b97f4a7c15
	z = x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z = z ^ (z >> 31)
	return z, x
}

// seed58 expands x0 via SplitMix64 into a 58-bit nonzero state word,
// retrying with the updated SplitMix64 state on the zero candidate
// (spec.md §4.I: "rejecting any candidate that masks to zero").
func seed58(x0 uint64) (z, x uint64) {
	for {
		z0, x1 := splitmix64Next(x0)
		z = z0 & mask58
		if z != 0 {
			return z, x1
		}
		x0 = x1
	}
}

// New constructs a State from a raw 64-bit seed (the low 64 bits of the
// protocol's u128 seed value, e.g. a small test seed like 42 or 777).
func New(seed uint64) *State {
	s0, x1 := seed58(seed)
	s1, _ := seed58(x1)
	return &State{s0: s0, s1: s1}
}

// NewFromSeed derives a State from the consensus-level 32-byte seed:
// the first 16 bytes read as a little-endian u128, of which only the
// low 64 bits participate in state expansion (spec.md §4.I).
func NewFromSeed(seed [32]byte) *State {
	return New(binary.LittleEndian.Uint64(seed[0:8]))
}

// Next advances the generator one step and returns its raw 58-bit
// scrambled output (spec.md §4.I state-update formula).
func (s *State) Next() uint64 {
	s1 := s.s0
	s0 := s.s1

	s0Masked := s0 & mask58
	s1Masked := s1 & mask58
	s1b := s1Masked ^ ((s1Masked << 24) & mask58)
	newS1 := s1b ^ s0Masked ^ (s1b >> 11) ^ (s0Masked >> 41)

	va := (s0Masked + ((s0Masked << 2) & mask58)) & mask58
	vb := ((va << 7) | (va >> 51)) & mask58
	output := (vb + ((vb << 3) & mask58)) & mask58

	s.s0 = s0Masked
	s.s1 = newS1 & mask58

	return output
}

// UniformFloat returns a value in [0.0, 1.0), the building block shuffle
// uses for its sort keys.
func (s *State) UniformFloat() float64 {
	const twoPowMinus53 = 1.0 / float64(uint64(1)<<53)
	shifted := s.Next() >> 5 // 58 - 53 = 5
	return float64(shifted) * twoPowMinus53
}

// Uniform returns a value in [1, n] via rejection sampling (spec.md
// §4.I): the fast path accepts any raw output below n directly;
// otherwise it rejects outputs that would bias the modulo reduction and
// retries.
func (s *State) Uniform(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	const bit58 = uint64(1) << 58
	for {
		v := s.Next()
		if v < n {
			return v + 1
		}
		i := v % n
		maxMinusRange := bit58 - n
		if v-i <= maxMinusRange {
			return i + 1
		}
		// v fell in the truncated top range that would bias the
		// distribution; draw again.
	}
}

// Shuffle permutes xs in place: each element is assigned a UniformFloat
// key in original-index order, then a stable sort by ascending key
// reorders the slice (spec.md §4.I: "matching the source ecosystem's
// Enum.shuffle contract exactly" — Elixir's Enum.shuffle/1 is a
// key-then-stable-sort shuffle, not Fisher-Yates).
func Shuffle[T any](s *State, xs []T) {
	if len(xs) <= 1 {
		return
	}
	keys := make([]float64, len(xs))
	for i := range xs {
		keys[i] = s.UniformFloat()
	}
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]] < keys[idx[b]]
	})
	out := make([]T, len(xs))
	for i, j := range idx {
		out[i] = xs[j]
	}
	copy(xs, out)
}
