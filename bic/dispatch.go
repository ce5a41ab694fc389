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

import "github.com/amacore/engine/engerr"

// ValidAction ports consensus_apply.rs::valid_bic_action, widened to the
// full (contract, function) surface SPEC_FULL.md names: unlike the
// source's dispatch table, which comments out every Coin mint/pause and
// every Lockup/LockupPrime entry, this engine's BIC surface serves all
// of them.
func ValidAction(contract, function string) bool {
	_, ok := dispatchTable[dispatchKey{contract, function}]
	return ok
}

type dispatchKey struct{ contract, function string }

// handler is the common shape every BIC entry point takes: the call
// args (already split on the wire codec's argument boundary) and the
// env carrying the KV facade, CallerEnv and PRNG for this tx.
type handler func(env *Env, args [][]byte) error

var dispatchTable = map[dispatchKey]handler{
	{"Coin", "transfer"}:        func(env *Env, args [][]byte) error { return NewCoin(env).Transfer(args) },
	{"Coin", "create_and_mint"}: func(env *Env, args [][]byte) error { return NewCoin(env).CreateAndMint(args) },
	{"Coin", "mint"}:            func(env *Env, args [][]byte) error { return NewCoin(env).CallMint(args) },
	{"Coin", "pause"}:           func(env *Env, args [][]byte) error { return NewCoin(env).Pause(args) },

	{"Nft", "transfer"}:           func(env *Env, args [][]byte) error { return NewNft(env).Transfer(args) },
	{"Nft", "create_collection"}:  func(env *Env, args [][]byte) error { return NewNft(env).CreateCollection(args) },
	{"Nft", "mint"}:               func(env *Env, args [][]byte) error { return NewNft(env).CallMint(args) },

	{"Epoch", "set_emission_address"}: func(env *Env, args [][]byte) error { return NewEpoch(env).SetEmissionAddress(args) },
	{"Epoch", "submit_sol"}:           func(env *Env, args [][]byte) error { return NewEpoch(env).SubmitSol(args) },
	{"Epoch", "slash_trainer"}:        func(env *Env, args [][]byte) error { return NewEpoch(env).SlashTrainer(args) },

	{"Contract", "deploy"}: func(env *Env, args [][]byte) error { return NewContract(env).Deploy(args) },

	{"Lockup", "create"}: func(env *Env, args [][]byte) error { return NewLockup(env).Create(args) },
	{"Lockup", "unlock"}: func(env *Env, args [][]byte) error { return NewLockup(env).Unlock(args) },

	{"LockupPrime", "lock"}:          func(env *Env, args [][]byte) error { return NewLockupPrime(env).Lock(args) },
	{"LockupPrime", "unlock"}:        func(env *Env, args [][]byte) error { return NewLockupPrime(env).Unlock(args) },
	{"LockupPrime", "daily_checkin"}: func(env *Env, args [][]byte) error { return NewLockupPrime(env).DailyCheckin(args) },
}

// Call ports consensus_apply.rs::call_bic: dispatch a BIC invocation to
// its handler, or abort with the same "invalid_bic_action" identifier
// the source panics with for an unrecognized (contract, function) pair.
func Call(env *Env, contract, function string, args [][]byte) error {
	h, ok := dispatchTable[dispatchKey{contract, function}]
	if !ok {
		return engerr.New("invalid_bic_action")
	}
	return h(env, args)
}
