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
	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/prng"
)

var (
	errInvalidSolSize        = engerr.New("invalid_sol_seed_size")
	errSegmentVRHashMismatch = engerr.New("segment_vr_hash")
)

// Solution layout constants, ported from original_source/.../consensus/bic/sol.rs.
const (
	SolPreambleSize = 240
	SolMatrixSize   = 1024
	SolSize         = SolPreambleSize + SolMatrixSize
)

// Sol is the unpacked form of a submitted 1264-byte mining solution.
type Sol struct {
	Epoch         uint64
	SegmentVRHash [32]byte
	PK            [48]byte
	POP           [96]byte
	Computor      [48]byte
	Nonce         [12]byte
	TensorC       [1024]byte
}

// Unpack ports sol.rs::unpack.
func Unpack(sol []byte) (Sol, bool) {
	if len(sol) != SolSize {
		return Sol{}, false
	}
	var s Sol
	s.Epoch = uint64(sol[0]) | uint64(sol[1])<<8 | uint64(sol[2])<<16 | uint64(sol[3])<<24
	copy(s.SegmentVRHash[:], sol[4:36])
	copy(s.PK[:], sol[36:84])
	copy(s.POP[:], sol[84:180])
	copy(s.Computor[:], sol[180:228])
	copy(s.Nonce[:], sol[228:240])
	copy(s.TensorC[:], sol[240:240+1024])
	return s, true
}

// VerifyHashDiff ports sol.rs::verify_hash_diff: hash must have diffBits
// leading zero bits.
func VerifyHashDiff(hash [32]byte, diffBits uint64) bool {
	if diffBits > 256 {
		return false
	}
	full, rem := diffBits/8, diffBits%8
	for _, b := range hash[:full] {
		if b != 0 {
			return false
		}
	}
	if rem != 0 && hash[full]&(0xFF<<(8-rem)) != 0 {
		return false
	}
	return true
}

// VerifySol ports sol.rs::verify: the submitted solution's embedded
// segment-VR-hash must match the caller-supplied one, the solution hash
// must meet the target difficulty, and the embedded matrix claim must
// pass the Freivalds probabilistic check (see freivalds.go).
func VerifySol(sol []byte, solHash [32]byte, segmentVRHash [32]byte, diffBits uint64, rng *prng.State) (bool, error) {
	usol, ok := Unpack(sol)
	if !ok {
		return false, errInvalidSolSize
	}
	if usol.SegmentVRHash != segmentVRHash {
		return false, errSegmentVRHashMismatch
	}
	if !VerifyHashDiff(solHash, diffBits) {
		return false, nil
	}
	return freivalds(sol, rng), nil
}
