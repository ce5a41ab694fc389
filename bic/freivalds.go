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
	"lukechampine.com/blake3"

	"github.com/amacore/engine/prng"
)

// freivalds is a reconstruction of the matrix-proof check that
// original_source/.../consensus/bic/sol.rs delegates to a
// consensus::bic::sol_freivalds module not present in the retrieval pack
// (see DESIGN.md, Open Question (c)). A submitted solution embeds a
// 32x32 byte matrix C (sol.rs's tensor_c); the two 32x32 factor matrices
// A and B are derived deterministically from the solution's own public
// key, proof-of-possession, computor and nonce fields via a blake3 XOF,
// so that a solution cannot be replayed against a different A/B pair.
// The check draws a random 0/1 vector r from the block PRNG and accepts
// the claim A*(B*r) == C*r (mod 256), the standard single-pass Freivalds
// matrix-multiplication identity test.
const freivaldsDim = 32

func freivaldsMatrices(sol []byte) (a, b [freivaldsDim][freivaldsDim]byte) {
	h := blake3.New(2*freivaldsDim*freivaldsDim, nil)
	h.Write([]byte("freivalds-factors"))
	h.Write(sol[36:228]) // pk || pop || computor, per sol.rs::unpack offsets
	h.Write(sol[228:240]) // nonce
	digest := h.Sum(nil)
	for i := 0; i < freivaldsDim; i++ {
		copy(a[i][:], digest[i*freivaldsDim:(i+1)*freivaldsDim])
	}
	off := freivaldsDim * freivaldsDim
	for i := 0; i < freivaldsDim; i++ {
		copy(b[i][:], digest[off+i*freivaldsDim:off+(i+1)*freivaldsDim])
	}
	return a, b
}

func freivaldsVector(rng *prng.State) [freivaldsDim]byte {
	var r [freivaldsDim]byte
	for i := 0; i < freivaldsDim; i++ {
		if rng.Next()&1 == 1 {
			r[i] = 1
		}
	}
	return r
}

func matVecMul(m [freivaldsDim][freivaldsDim]byte, v [freivaldsDim]byte) [freivaldsDim]byte {
	var out [freivaldsDim]byte
	for i := 0; i < freivaldsDim; i++ {
		var sum byte
		for j := 0; j < freivaldsDim; j++ {
			sum += m[i][j] * v[j]
		}
		out[i] = sum
	}
	return out
}

func freivalds(sol []byte, rng *prng.State) bool {
	if len(sol) != SolSize {
		return false
	}
	var c [freivaldsDim][freivaldsDim]byte
	tensor := sol[SolPreambleSize : SolPreambleSize+SolMatrixSize]
	for i := 0; i < freivaldsDim; i++ {
		copy(c[i][:], tensor[i*freivaldsDim:(i+1)*freivaldsDim])
	}

	a, b := freivaldsMatrices(sol)
	r := freivaldsVector(rng)

	br := matVecMul(b, r)
	abr := matVecMul(a, br)
	cr := matVecMul(c, r)
	return abr == cr
}
