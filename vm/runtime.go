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

	"github.com/tetratelabs/wazero"

	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/params"
)

// Execute instantiates wasm fresh, writes the fixed call context into
// its reserved low-memory region, marshals args into the guest's own
// memory as a call-argument table and invokes export with a pointer to
// that table as its single argument (§6: "every exported function with
// pub extern "C" linkage and the ABI (ptr_0,…,ptr_n) -> () is callable";
// this engine always passes the one argtable pointer import_call itself
// uses, a reconstructed convention since the source material never
// spells out how top-level call arguments reach an export), and returns
// whatever the guest logged or handed back via import_return.
//
// A fresh wazero.Runtime is built per call: module instances are not
// reused across transactions, matching §5's single-threaded, one-call-
// at-a-time execution model and keeping every call's linear memory
// pristine at the caller-supplied initial size.
func Execute(ctx context.Context, wasmBytes []byte, export string, callCtx CallContext, args [][]byte, dispatcher Dispatcher) (Result, error) {
	if err := CheckModuleLimits(wasmBytes); err != nil {
		return Result{}, err
	}

	cfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(params.MemoryMaxPages)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	defer rt.Close(ctx)

	if err := registerHostModule(ctx, rt); err != nil {
		return Result{}, engerr.Wrap(engerr.WasmInvalidModule, err)
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return Result{}, engerr.Wrap(engerr.WasmInvalidModule, err)
	}

	state := &hostState{dispatcher: dispatcher}
	callCtx2 := context.WithValue(ctx, hostStateKey{}, state)

	mod, err := rt.InstantiateModule(callCtx2, compiled, wazero.NewModuleConfig())
	if err != nil {
		return Result{}, engerr.Wrap(engerr.WasmInvalidModule, err)
	}
	defer mod.Close(callCtx2)

	mem := mod.Memory()
	if mem == nil {
		return Result{}, engerr.New(errGuestMemoryWrite)
	}
	if err := writeContext(mem, callCtx); err != nil {
		return Result{}, err
	}

	argPtr, err := writeArgTable(mem, args)
	if err != nil {
		return Result{}, err
	}

	fn := mod.ExportedFunction(export)
	if fn == nil {
		return Result{}, engerr.New(errExportNotFound)
	}

	if _, err := fn.Call(callCtx2, uint64(argPtr)); err != nil {
		if state.fault != nil {
			return Result{}, state.fault
		}
		return Result{}, engerr.Wrap(errGuestTrap, err)
	}
	if state.fault != nil {
		return Result{}, state.fault
	}

	return Result{ReturnValue: state.returned, Logs: state.logs}, nil
}

const (
	errExportNotFound = "wasm_export_not_found"
	errGuestTrap      = "wasm_guest_trap"
)
