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
	"math/big"

	"lukechampine.com/blake3"

	"github.com/amacore/engine/consensus"
	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/params"
)

func blake3Sum(b []byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write(b)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Epoch ports the Epoch.* BIC surface that original_source's
// consensus_apply.rs::call_bic dispatches to (submit_sol,
// set_emission_address, slash_trainer). There is no standalone epoch.rs
// in the retrieval pack; its behavior is reconstructed from
// consensus_apply.rs's dispatch table together with sol.rs and
// sol_bloom.rs, which it calls into directly.
type Epoch struct {
	env *Env
}

func NewEpoch(env *Env) *Epoch { return &Epoch{env: env} }

func trainerKey(account []byte) []byte {
	return bcat([]byte("bic:epoch:trainer:"), account, []byte(":emission_address"))
}

// SetEmissionAddress is Epoch.set_emission_address(address): a trainer
// registers the account that receives its solution-reward emission.
func (e *Epoch) SetEmissionAddress(args [][]byte) error {
	if len(args) != 1 {
		return engerr.New(engerr.InvalidArgs)
	}
	address := args[0]
	if !validPubkeyShape(address) {
		return engerr.New(engerr.InvalidArgs)
	}
	return e.env.KV.Put(trainerKey(e.env.Caller.AccountCaller), address)
}

func (e *Epoch) emissionAddress(trainer []byte) ([]byte, error) {
	v, ok, err := e.env.KV.Get(trainerKey(trainer))
	if err != nil {
		return nil, err
	}
	if !ok {
		return trainer, nil
	}
	return v, nil
}

// SubmitSol is Epoch.submit_sol(sol): verify the embedded matrix proof
// and hash-difficulty claim, reject a replayed solution via the
// per-epoch bloom filter, credit the trainer's emission address with
// the block reward, and bump the epoch's accepted-solution counter that
// the exit hook's Rotate call retargets against
// (consensus.RetargetBits).
func (e *Epoch) SubmitSol(args [][]byte) error {
	if len(args) != 1 {
		return engerr.New(engerr.InvalidArgs)
	}
	sol := args[0]
	if len(sol) != SolSize {
		return errInvalidSolSize
	}
	solHash := blake3Sum(sol)

	segmentVR, err := consensus.SegmentVRHash(e.env.KV)
	if err != nil {
		return err
	}
	var segmentVRHash [32]byte
	copy(segmentVRHash[:], segmentVR)

	bits, err := consensus.DifficultyBits(e.env.KV)
	if err != nil {
		return err
	}

	ok, err := VerifySol(sol, solHash, segmentVRHash, bits, e.env.RNG)
	if err != nil {
		return err
	}
	if !ok {
		return engerr.New("invalid_sol")
	}

	if dup, err := e.checkAndSetBloom(sol); err != nil {
		return err
	} else if dup {
		return engerr.New("duplicate_sol")
	}

	emissionAddr, err := e.emissionAddress(e.env.Caller.AccountCaller)
	if err != nil {
		return err
	}
	reward := new(big.Int).SetUint64(params.SolutionReward)
	if _, err := e.env.KV.Increment(coinBalanceKey(emissionAddr, []byte("AMA")), reward); err != nil {
		return err
	}
	if _, err := e.env.KV.Increment([]byte("coin:AMA:totalSupply"), reward); err != nil {
		return err
	}

	return consensus.RecordSolution(e.env.KV)
}

// checkAndSetBloom reports whether sol's digest was already present in
// the current epoch's bloom filter, setting its bits as a side effect
// (sol_bloom.rs's page/bit-offset split over kv_set_bit). Facade.SetBit
// reports whether a bit flipped 0->1; if every one of the digest's
// segments was already set, the solution is treated as a (probabilistic)
// duplicate.
func (e *Epoch) checkAndSetBloom(sol []byte) (dup bool, err error) {
	segs := SegsFromDigest(blake3Sum(sol))

	anyFlipped := false
	for _, seg := range segs {
		key := bloomPageKey(e.env.Caller.EntryEpoch, seg.Page)
		flipped, err := e.env.KV.SetBit(key, uint32(seg.BitOffset))
		if err != nil {
			return false, err
		}
		if flipped {
			anyFlipped = true
		}
	}
	return !anyFlipped, nil
}

// SlashTrainer is Epoch.slash_trainer(trainer): an operator action that
// deletes a trainer's registered emission address, so its later solution
// rewards are credited to the trainer's own account until it sets an
// emission address again.
func (e *Epoch) SlashTrainer(args [][]byte) error {
	if len(args) != 1 {
		return engerr.New(engerr.InvalidArgs)
	}
	trainer := args[0]
	return e.env.KV.Delete(trainerKey(trainer))
}
