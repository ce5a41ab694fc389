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
	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/params"
)

// Package-local stable identifiers for each module-limit violation
// (§4.H: "rejects on any violation with a stable identifier"); these sit
// alongside engerr.WasmInvalidModule, which covers the generic malformed
// case rather than a specific limit.
const (
	errModuleTooLarge   = "wasm_module_too_large"
	errTooManyFunctions = "wasm_too_many_functions"
	errTooManyGlobals   = "wasm_too_many_globals"
	errTooManyExports   = "wasm_too_many_exports"
	errTooManyImports   = "wasm_too_many_imports"
	errDataBelowReserved = "wasm_data_segment_below_reserved"
	errMemoryTooLarge   = "wasm_memory_too_large"
)

// CheckModuleLimits validates wasm against every static bound §4.H names:
// total size, function/global/export/import counts, and that no active
// data segment targets an offset inside the reserved [0, 65536) host
// region. It is run on Contract.deploy's bytecode before it ever reaches
// the BIC dispatch table (see apply.callBIC's pre-dispatch validation).
func CheckModuleLimits(wasm []byte) error {
	if len(wasm) > params.MaxModuleBytes {
		return engerr.New(errModuleTooLarge)
	}

	secs, err := parseSections(wasm)
	if err != nil {
		return err
	}

	if payload, ok := findSection(secs, secFunction); ok {
		n, err := countVecEntries(payload)
		if err != nil {
			return err
		}
		if n > params.MaxFunctions {
			return engerr.New(errTooManyFunctions)
		}
	}

	if payload, ok := findSection(secs, secGlobal); ok {
		n, err := countVecEntries(payload)
		if err != nil {
			return err
		}
		if n > params.MaxGlobals {
			return engerr.New(errTooManyGlobals)
		}
	}

	if payload, ok := findSection(secs, secExport); ok {
		n, err := countVecEntries(payload)
		if err != nil {
			return err
		}
		if n > params.MaxExports {
			return engerr.New(errTooManyExports)
		}
	}

	if payload, ok := findSection(secs, secImport); ok {
		n, err := countVecEntries(payload)
		if err != nil {
			return err
		}
		if n > params.MaxImports {
			return engerr.New(errTooManyImports)
		}
	}

	if payload, ok := findSection(secs, secMemory); ok {
		mem, err := parseMemorySection(payload)
		if err != nil {
			return err
		}
		if mem.initial > params.MemoryMaxPages || (mem.hasMax && mem.max > params.MemoryMaxPages) {
			return engerr.New(errMemoryTooLarge)
		}
	}

	if payload, ok := findSection(secs, secData); ok {
		segs, err := parseDataSection(payload)
		if err != nil {
			return err
		}
		for _, seg := range segs {
			if seg.passive {
				continue
			}
			if seg.offset < 0 || uint32(seg.offset) < params.ReservedMemoryEnd {
				return engerr.New(errDataBelowReserved)
			}
		}
	}

	return nil
}
