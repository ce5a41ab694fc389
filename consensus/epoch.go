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

package consensus

import (
	"math/big"
	"strconv"

	"lukechampine.com/blake3"

	"github.com/amacore/engine/params"
)

// Key layout under the bic:epoch:* namespace (§3 Account namespace).
// These are the only keys this package touches directly; bic/'s
// Epoch.* handlers own the rest of the epoch bookkeeping (trainer set,
// emission address, sol bloom filter).
const (
	KeyDifficultyBits = "bic:epoch:difficulty_bits"
	KeySolutionsCount = "bic:epoch:solutions_count"
	KeySegmentVRHash  = "bic:epoch:segment_vr_hash"
)

// kv is the minimal facade surface this package needs, satisfied by
// *kvstore.Facade without importing kvstore (keeps consensus's
// dependency graph a leaf the way params/ is).
type kv interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
}

// DifficultyBits reads the current difficulty, defaulting to
// params.MinDifficultyBits when the epoch counter has never been
// initialized (height 0, first epoch).
func DifficultyBits(store kv) (uint64, error) {
	v, ok, err := store.Get([]byte(KeyDifficultyBits))
	if err != nil {
		return 0, err
	}
	if !ok {
		return params.MinDifficultyBits, nil
	}
	n, ok := new(big.Int).SetString(string(v), 10)
	if !ok {
		return params.MinDifficultyBits, nil
	}
	return n.Uint64(), nil
}

// SolutionsCount reads the running count of accepted solutions in the
// current epoch, 0 if unset.
func SolutionsCount(store kv) (uint64, error) {
	v, ok, err := store.Get([]byte(KeySolutionsCount))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, ok := new(big.Int).SetString(string(v), 10)
	if !ok {
		return 0, nil
	}
	return n.Uint64(), nil
}

// RecordSolution is called by bic's Epoch.submit_sol once a submitted
// solution has verified; it bumps the running per-epoch counter with a
// Get and a Put on the given store, so when that store is the KV facade
// the write is charged and journaled like any other Put.
func RecordSolution(store kv) error {
	n, err := SolutionsCount(store)
	if err != nil {
		return err
	}
	return store.Put([]byte(KeySolutionsCount), []byte(strconv.FormatUint(n+1, 10)))
}

// SnapshotSegmentVR stores the given segment VR hash as the current
// segment's checkpoint (§4.F); the apply driver's exit hook passes
// blake3(entry.vr). The caller is responsible for only invoking this at
// a height boundary (see IsSegmentBoundary).
func SnapshotSegmentVR(store kv, vr []byte) error {
	return store.Put([]byte(KeySegmentVRHash), vr)
}

// SegmentVRHash reads back the last snapshotted segment VR hash, or nil if
// none has been taken yet.
func SegmentVRHash(store kv) ([]byte, error) {
	v, ok, err := store.Get([]byte(KeySegmentVRHash))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return v, nil
}

// IsSegmentBoundary reports whether height is one of the fixed points at
// which the exit hook must snapshot the segment VR.
func IsSegmentBoundary(height uint64) bool {
	return height%params.SegmentSnapshotInterval == 0
}

// IsEpochRotation reports whether height is the instant the exit hook
// must run full epoch rotation (§4.F: height % 100_000 == 99_999).
func IsEpochRotation(height uint64) bool {
	return height%params.EpochRotationModulus == params.EpochRotationRemainder
}

// Rotate performs the end-of-epoch bookkeeping the exit hook invokes at
// an IsEpochRotation height: read the epoch's accumulated solution
// count, retarget difficulty bits against it, persist the new bits, and
// reset the counter for the epoch that is about to start. It returns the
// newly set difficulty bits.
func Rotate(store kv) (uint64, error) {
	current, err := DifficultyBits(store)
	if err != nil {
		return 0, err
	}
	sols, err := SolutionsCount(store)
	if err != nil {
		return 0, err
	}

	next := RetargetBits(current, RetargetInput{Solutions: sols})

	if err := store.Put([]byte(KeyDifficultyBits), []byte(strconv.FormatUint(next, 10))); err != nil {
		return 0, err
	}
	if err := store.Put([]byte(KeySolutionsCount), []byte("0")); err != nil {
		return 0, err
	}
	return next, nil
}

// ReseedSeed derives the exit hook's per-entry PRNG reseed value,
// blake3(entry.vr) (§4.J step 3), kept here alongside the rest of the
// per-entry epoch hooks since both are driven off the same entry.vr.
func ReseedSeed(vr []byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write(vr)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
