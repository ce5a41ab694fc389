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

// Package consensus implements spec.md §4.F: the difficulty-bits
// retarget formula and the segment/epoch hooks the apply driver's exit
// hook invokes. It owns no state of its own — every function here is a
// pure transform over values the caller reads from / writes back to the
// KV facade, in the same "protocol math lives in params+consensus,
// storage orchestration lives in the driver" split the teacher keeps
// between params/protocol_params.go and consensus/.
package consensus

import (
	"math/bits"

	"github.com/amacore/engine/params"
)

// RetargetInput is the window of observations the bits-retarget formula
// needs: how many accepted solutions landed in the epoch just closed.
type RetargetInput struct {
	Solutions uint64
}

// RetargetBits applies §4.F's retarget formula to the current difficulty
// bits and returns the next epoch's bits, clamped to
// [MinDifficultyBits, MaxDifficultyBits]. This is a direct port of
// original_source/.../consensus/bic/sol_difficulty.rs::next, kept in
// exact integer arithmetic (no floating point) to match the source bit
// for bit: the tolerance band is target*(1±1/10) computed with
// round-half-up integer division, a retarget step uses
// ceil(log2(ratio)) via an exact floor-log2 plus a one-step correction
// rather than math.Log2, and zero solutions is a fixed min(3,
// MaxBitsDownStep)-bit drop.
func RetargetBits(currentBits uint64, in RetargetInput) uint64 {
	target := uint64(params.SolutionsPerEpoch)
	lo := maxU64(1, ceilDivRound(target*(params.RetargetTolDen-params.RetargetTolNum), params.RetargetTolDen))
	hi := ceilDivRound(target*(params.RetargetTolDen+params.RetargetTolNum), params.RetargetTolDen)

	sols := in.Solutions
	var next uint64
	switch {
	case sols == 0:
		next = subClamped(currentBits, minU64(params.MaxBitsDownStep, 3))
	case sols > hi:
		raw := ceilLog2Ratio(sols, target)
		delta := maxU64(1, minU64(params.MaxBitsUpStep, ceilDiv(raw, params.UpSlowdown)))
		next = currentBits + delta
	case sols < lo:
		delta := maxU64(1, minU64(params.MaxBitsDownStep, ceilLog2Ratio(target, maxU64(sols, 1))))
		next = subClamped(currentBits, delta)
	default:
		next = currentBits
	}

	return clampBits(next)
}

// ceilDivRound computes (a + b/2) / b, i.e. round-half-up division used
// by sol_difficulty.rs's tolerance-band bounds (`(target*tol + den/2) /
// den`).
func ceilDivRound(a, b uint64) uint64 {
	return (a + b/2) / b
}

// ceilDiv computes ceil(a/b) for positive integers.
func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// ilog2Floor returns floor(log2(n)) for n >= 1.
func ilog2Floor(n uint64) uint64 {
	if n < 1 {
		return 0
	}
	return 63 - uint64(bits.LeadingZeros64(n))
}

// ceilLog2Ratio ports sol_difficulty.rs::ceil_log2_ratio: ceil(log2(a/b))
// for a > b >= 1, computed from floor-log2 plus a one-step correction
// rather than floating point.
func ceilLog2Ratio(a, b uint64) uint64 {
	if a <= b {
		return 0
	}
	d0 := ilog2Floor(a) - ilog2Floor(b)
	if (b << d0) >= a {
		return d0
	}
	return d0 + 1
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// subClamped subtracts delta from bits without underflowing the uint64.
func subClamped(bits, delta uint64) uint64 {
	if delta >= bits {
		return 0
	}
	return bits - delta
}

func clampBits(bits uint64) uint64 {
	if bits < params.MinDifficultyBits {
		return params.MinDifficultyBits
	}
	if bits > params.MaxDifficultyBits {
		return params.MaxDifficultyBits
	}
	return bits
}
