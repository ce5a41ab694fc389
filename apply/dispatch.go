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

package apply

import (
	"context"
	"math/big"

	"github.com/amacore/engine/bic"
	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/kvstore"
	"github.com/amacore/engine/params"
	"github.com/amacore/engine/prng"
	"github.com/amacore/engine/vm"
)

// ApplyEnv is the single per-tx execution context a dispatch (BIC or
// guest VM) runs against: one KV facade shared across the whole entry
// (§4.J step 2's "clear muts/muts_rev" happens by journal-length
// snapshotting, not by swapping facades, so reverting one tx never
// disturbs another's already-applied effect) plus the CallerEnv fields
// both BIC and the guest VM read.
type ApplyEnv struct {
	facade *kvstore.Facade
	caller *bic.CallerEnv
	rng    *prng.State
}

func newApplyEnv(facade *kvstore.Facade, caller *bic.CallerEnv, rng *prng.State) *ApplyEnv {
	return &ApplyEnv{facade: facade, caller: caller, rng: rng}
}

func (e *ApplyEnv) bicEnv() *bic.Env { return bic.NewEnv(e.facade, e.caller, e.rng) }

const errCallDepthExceeded = "exec_call_depth_exceeded"

// dispatch routes one top-level tx action or guest sub-call to BIC or
// the guest VM (§4.J step 2: "Pubkey-shaped contract addresses route to
// the guest VM; symbolic names route to BIC"). Contract bytecode is
// validated by vm.CheckModuleLimits before Contract.deploy ever stores
// it, so by the time a guest contract is dispatched its bytecode has
// already passed the module limits (bic/contract.go's Deploy comment).
func (e *ApplyEnv) dispatch(ctx context.Context, contract []byte, function string, args [][]byte) ([]byte, error) {
	if len(contract) == params.PubkeySize {
		return e.callGuest(ctx, contract, function, args)
	}
	return nil, callBIC(e.bicEnv(), contract, function, args)
}

// callBIC runs bytecode deploys through the guest-VM module validator
// before handing off to bic.Call, exactly as bic/contract.go's Deploy
// comment describes.
func callBIC(env *bic.Env, contract []byte, function string, args [][]byte) error {
	if string(contract) == "Contract" && function == "deploy" && len(args) == 1 {
		if err := vm.CheckModuleLimits(args[0]); err != nil {
			return err
		}
	}
	return bic.Call(env, string(contract), function, args)
}

// callGuest instantiates the callee's stored bytecode and invokes
// function, rotating the account chain the way §4.H's import_call
// fixes: account_caller becomes the caller's own current account,
// account_current becomes callee, account_origin is unchanged.
func (e *ApplyEnv) callGuest(ctx context.Context, callee []byte, function string, args [][]byte) ([]byte, error) {
	if e.caller.CallDepth >= params.MaxCallDepth {
		return nil, engerr.New(errCallDepthExceeded)
	}

	bytecode, ok, err := bic.NewContract(e.bicEnv()).Bytecode(callee)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, engerr.New(engerr.InvalidArgs)
	}

	prevCaller, prevCurrent, prevDepth := e.caller.AccountCaller, e.caller.AccountCurrent, e.caller.CallDepth
	e.caller.AccountCaller = e.caller.AccountCurrent
	e.caller.AccountCurrent = callee
	e.caller.CallDepth = prevDepth + 1
	defer func() {
		e.caller.AccountCaller = prevCaller
		e.caller.AccountCurrent = prevCurrent
		e.caller.CallDepth = prevDepth
	}()

	callCtx := vm.CallContext{
		Seed: e.caller.Seed,

		EntrySlot:     e.caller.EntrySlot,
		EntryHeight:   e.caller.EntryHeight,
		EntryEpoch:    e.caller.EntryEpoch,
		EntrySigner:   e.caller.EntrySigner,
		EntryPrevHash: e.caller.EntryPrevHash,
		EntryVR:       e.caller.EntryVR,
		EntryDR:       e.caller.EntryDR,

		TxNonce:  e.caller.TxNonce,
		TxSigner: e.caller.TxSigner,

		AccountCurrent: e.caller.AccountCurrent,
		AccountCaller:  e.caller.AccountCaller,
		AccountOrigin:  e.caller.AccountOrigin,

		AttachedSymbol: e.caller.AttachedSymbol,
		AttachedAmount: e.caller.AttachedAmount,
		HasAttachment:  e.caller.HasAttachment,
	}

	result, err := vm.Execute(ctx, bytecode, function, callCtx, args, guestDispatcher{e})
	if err != nil {
		return nil, err
	}
	return result.ReturnValue, nil
}

// guestDispatcher implements vm.Dispatcher over an ApplyEnv so the vm
// package never imports kvstore or bic directly (§9's closure-captured
// handle in place of global/thread-local state).
type guestDispatcher struct{ env *ApplyEnv }

func (d guestDispatcher) KVPut(key, value []byte) error { return d.env.facade.Put(key, value) }

func (d guestDispatcher) KVGet(key []byte) ([]byte, bool, error) { return d.env.facade.Get(key) }

func (d guestDispatcher) KVExists(key []byte) (bool, error) { return d.env.facade.Exists(key) }

func (d guestDispatcher) KVIncrement(key []byte, delta *big.Int) (*big.Int, error) {
	return d.env.facade.Increment(key, delta)
}

func (d guestDispatcher) KVDelete(key []byte) error { return d.env.facade.Delete(key) }

func (d guestDispatcher) KVGetNext(key []byte) ([]byte, []byte, bool, error) {
	return d.env.facade.GetNext(key)
}

func (d guestDispatcher) KVGetPrev(key []byte) ([]byte, []byte, bool, error) {
	return d.env.facade.GetPrev(key)
}

func (d guestDispatcher) Call(contract []byte, function string, args [][]byte) ([]byte, error) {
	return d.env.dispatch(context.Background(), contract, function, args)
}

func (d guestDispatcher) ChargeCall() error {
	return d.env.facade.ChargeExec(int64(params.ExecOperatorCost["call"]))
}
