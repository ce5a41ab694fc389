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

package vm

import (
	"context"
	"math/big"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/params"
)

// Dispatcher is the host-side surface a guest call is executed against:
// the current tx's KV facade (via apply's ApplyEnv) for the
// import_kv_* family, and sub-call routing for import_call. apply
// implements this over its ApplyEnv so vm never imports kvstore or bic
// directly (§9 "global/thread-local state... replaced by a
// closure-captured handle").
type Dispatcher interface {
	KVPut(key, value []byte) error
	KVGet(key []byte) (value []byte, ok bool, err error)
	KVExists(key []byte) (bool, error)
	KVIncrement(key []byte, delta *big.Int) (*big.Int, error)
	KVDelete(key []byte) error
	KVGetNext(key []byte) (nextKey, value []byte, ok bool, err error)
	KVGetPrev(key []byte) (prevKey, value []byte, ok bool, err error)

	// Call performs a sub-call (import_call) into BIC or another guest
	// contract. The implementation is responsible for the account-chain
	// rotation (§4.H: "account_caller := current contract, account_current
	// := callee, account_origin unchanged") and for the call-depth check
	// against params.MaxCallDepth.
	Call(contract []byte, function string, args [][]byte) ([]byte, error)

	// ChargeCall spends the fixed "call" operator tariff for one host
	// import invocation. Real per-opcode metering is approximated by
	// charging this tariff at every host boundary crossing rather than
	// per compiled instruction (wazero's stable public API does not
	// expose per-opcode billing hooks).
	ChargeCall() error
}

// Result is what one guest call produced.
type Result struct {
	ReturnValue []byte
	Logs        []string
}

type hostState struct {
	dispatcher Dispatcher
	logs       []string
	logBytes   int
	returned   []byte
	fault      error
}

type hostStateKey struct{}

func stateFrom(ctx context.Context) *hostState {
	s, _ := ctx.Value(hostStateKey{}).(*hostState)
	return s
}

// recordFault remembers the first host-side error encountered so
// Execute can surface it once the call returns; wazero host functions
// have no other channel back to the caller besides a trap.
func (s *hostState) recordFault(err error) {
	if s.fault == nil {
		s.fault = err
	}
}

func hostLog(ctx context.Context, mod api.Module, ptr, ln uint32) {
	s := stateFrom(ctx)
	if s.fault != nil {
		return
	}
	if err := s.dispatcher.ChargeCall(); err != nil {
		s.recordFault(err)
		return
	}
	if ln > params.LogLineCap {
		s.recordFault(engerr.New(errLogLineTooLarge))
		return
	}
	if len(s.logs) >= params.LogRecordCap {
		s.recordFault(engerr.New(errLogTooManyRecords))
		return
	}
	b, err := readGuestBytes(mod.Memory(), ptr, ln)
	if err != nil {
		s.recordFault(err)
		return
	}
	if s.logBytes+len(b) > params.LogTotalCap {
		s.recordFault(engerr.New(engerr.WasmLogsTotalSizeExceeded))
		return
	}
	s.logs = append(s.logs, string(b))
	s.logBytes += len(b)
}

func hostReturn(ctx context.Context, mod api.Module, ptr, ln uint32) {
	s := stateFrom(ctx)
	if s.fault != nil {
		return
	}
	if err := s.dispatcher.ChargeCall(); err != nil {
		s.recordFault(err)
		return
	}
	b, err := readGuestBytes(mod.Memory(), ptr, ln)
	if err != nil {
		s.recordFault(err)
		return
	}
	s.returned = b
}

const (
	errLogLineTooLarge   = "wasm_log_line_too_large"
	errLogTooManyRecords = "wasm_log_too_many_records"
)

func hostCall(ctx context.Context, mod api.Module, argtablePtr, extraPtr uint32) uint32 {
	s := stateFrom(ctx)
	if s.fault != nil {
		return 1
	}
	if err := s.dispatcher.ChargeCall(); err != nil {
		s.recordFault(err)
		return 1
	}
	mem := mod.Memory()
	args, err := decodeArgTable(mem, argtablePtr)
	if err != nil {
		s.recordFault(err)
		return 1
	}
	extra, err := decodeArgTable(mem, extraPtr)
	if err != nil {
		s.recordFault(err)
		return 1
	}
	if len(extra) != 2 {
		s.recordFault(engerr.New(errGuestPointerOOB))
		return 1
	}
	contract, function := extra[0], string(extra[1])
	out, err := s.dispatcher.Call(contract, function, args)
	if err != nil {
		s.recordFault(err)
		return 1
	}
	s.returned = out
	return 0
}

func kvTwoArgStatus(ctx context.Context, mod api.Module, keyPtr, keyLen uint32, fn func(key []byte) error) uint32 {
	s := stateFrom(ctx)
	if s.fault != nil {
		return 1
	}
	if err := s.dispatcher.ChargeCall(); err != nil {
		s.recordFault(err)
		return 1
	}
	key, err := readGuestBytes(mod.Memory(), keyPtr, keyLen)
	if err != nil {
		s.recordFault(err)
		return 1
	}
	if err := fn(key); err != nil {
		s.recordFault(err)
		return 1
	}
	return 0
}

func hostKVPut(ctx context.Context, mod api.Module, keyPtr, keyLen, valPtr, valLen uint32) uint32 {
	s := stateFrom(ctx)
	if s.fault != nil {
		return 1
	}
	if err := s.dispatcher.ChargeCall(); err != nil {
		s.recordFault(err)
		return 1
	}
	mem := mod.Memory()
	key, err := readGuestBytes(mem, keyPtr, keyLen)
	if err != nil {
		s.recordFault(err)
		return 1
	}
	val, err := readGuestBytes(mem, valPtr, valLen)
	if err != nil {
		s.recordFault(err)
		return 1
	}
	if err := s.dispatcher.KVPut(key, val); err != nil {
		s.recordFault(err)
		return 1
	}
	return 0
}

func hostKVDelete(ctx context.Context, mod api.Module, keyPtr, keyLen uint32) uint32 {
	return kvTwoArgStatus(ctx, mod, keyPtr, keyLen, func(key []byte) error {
		return stateFrom(ctx).dispatcher.KVDelete(key)
	})
}

func hostKVExists(ctx context.Context, mod api.Module, keyPtr, keyLen uint32) uint32 {
	s := stateFrom(ctx)
	if s.fault != nil {
		return 0
	}
	if err := s.dispatcher.ChargeCall(); err != nil {
		s.recordFault(err)
		return 0
	}
	key, err := readGuestBytes(mod.Memory(), keyPtr, keyLen)
	if err != nil {
		s.recordFault(err)
		return 0
	}
	ok, err := s.dispatcher.KVExists(key)
	if err != nil {
		s.recordFault(err)
		return 0
	}
	if ok {
		return 1
	}
	return 0
}

// hostKVGet writes the found value (if any) back via import_return's
// buffer convention: the guest reads its result from the returned-value
// slot this call populates, then calls import_return itself if it wants
// to hand the bytes onward, or inspects them directly after the call
// returns 1/0 for found/absent.
func hostKVGet(ctx context.Context, mod api.Module, keyPtr, keyLen uint32) uint32 {
	s := stateFrom(ctx)
	if s.fault != nil {
		return 0
	}
	if err := s.dispatcher.ChargeCall(); err != nil {
		s.recordFault(err)
		return 0
	}
	key, err := readGuestBytes(mod.Memory(), keyPtr, keyLen)
	if err != nil {
		s.recordFault(err)
		return 0
	}
	v, ok, err := s.dispatcher.KVGet(key)
	if err != nil {
		s.recordFault(err)
		return 0
	}
	if !ok {
		return 0
	}
	s.returned = v
	return 1
}

func hostKVIncrement(ctx context.Context, mod api.Module, keyPtr, keyLen uint32, deltaPtr, deltaLen uint32) uint32 {
	s := stateFrom(ctx)
	if s.fault != nil {
		return 1
	}
	if err := s.dispatcher.ChargeCall(); err != nil {
		s.recordFault(err)
		return 1
	}
	mem := mod.Memory()
	key, err := readGuestBytes(mem, keyPtr, keyLen)
	if err != nil {
		s.recordFault(err)
		return 1
	}
	deltaBytes, err := readGuestBytes(mem, deltaPtr, deltaLen)
	if err != nil {
		s.recordFault(err)
		return 1
	}
	delta, ok := new(big.Int).SetString(string(deltaBytes), 10)
	if !ok {
		s.recordFault(engerr.New(engerr.InvalidArgs))
		return 1
	}
	newVal, err := s.dispatcher.KVIncrement(key, delta)
	if err != nil {
		s.recordFault(err)
		return 1
	}
	s.returned = []byte(newVal.String())
	return 0
}

func hostKVGetNext(ctx context.Context, mod api.Module, keyPtr, keyLen uint32) uint32 {
	return hostKVNeighbor(ctx, mod, keyPtr, keyLen, stateFrom(ctx).dispatcher.KVGetNext)
}

func hostKVGetPrev(ctx context.Context, mod api.Module, keyPtr, keyLen uint32) uint32 {
	return hostKVNeighbor(ctx, mod, keyPtr, keyLen, stateFrom(ctx).dispatcher.KVGetPrev)
}

func hostKVNeighbor(ctx context.Context, mod api.Module, keyPtr, keyLen uint32, lookup func([]byte) ([]byte, []byte, bool, error)) uint32 {
	s := stateFrom(ctx)
	if s.fault != nil {
		return 0
	}
	if err := s.dispatcher.ChargeCall(); err != nil {
		s.recordFault(err)
		return 0
	}
	key, err := readGuestBytes(mod.Memory(), keyPtr, keyLen)
	if err != nil {
		s.recordFault(err)
		return 0
	}
	_, v, ok, err := lookup(key)
	if err != nil {
		s.recordFault(err)
		return 0
	}
	if !ok {
		return 0
	}
	s.returned = v
	return 1
}

// registerHostModule wires every §4.H host import under namespace "env".
func registerHostModule(ctx context.Context, rt wazero.Runtime) error {
	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(hostLog).Export("import_log").
		NewFunctionBuilder().WithFunc(hostReturn).Export("import_return").
		NewFunctionBuilder().WithFunc(hostCall).Export("import_call").
		NewFunctionBuilder().WithFunc(hostKVPut).Export("import_kv_put").
		NewFunctionBuilder().WithFunc(hostKVGet).Export("import_kv_get").
		NewFunctionBuilder().WithFunc(hostKVExists).Export("import_kv_exists").
		NewFunctionBuilder().WithFunc(hostKVIncrement).Export("import_kv_increment").
		NewFunctionBuilder().WithFunc(hostKVDelete).Export("import_kv_delete").
		NewFunctionBuilder().WithFunc(hostKVGetNext).Export("import_kv_get_next").
		NewFunctionBuilder().WithFunc(hostKVGetPrev).Export("import_kv_get_prev").
		Instantiate(ctx)
	return err
}
