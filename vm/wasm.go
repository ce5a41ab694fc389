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

// Package vm implements spec.md §4.H: the guest-contract sandbox. This
// file is the binary-format half: a streaming WASM module-section walker
// used only to enforce the module-limit invariants ahead of instantiation.
// wazero's stable public API (CompiledModule) does not expose function,
// global, export or data-segment counts ahead of full compilation in a
// form this engine can rely on staying stable across versions, so the
// counts are read directly off the wire the way a bytecode-format reader
// normally would.
package vm

import (
	"github.com/amacore/engine/engerr"
)

var wasmMagic = [4]byte{0x00, 0x61, 0x73, 0x6d}
var wasmVersion = [4]byte{0x01, 0x00, 0x00, 0x00}

const (
	secCustom    = 0
	secType      = 1
	secImport    = 2
	secFunction  = 3
	secTable     = 4
	secMemory    = 5
	secGlobal    = 6
	secExport    = 7
	secStart     = 8
	secElement   = 9
	secCode      = 10
	secData      = 11
	secDataCount = 12
)

// reader is a cursor over a module's bytes; every read method reports the
// stable "wasm_invalid_module" identifier on truncation or malformed
// LEB128 encoding.
type reader struct {
	b   []byte
	pos int
}

func (r *reader) remaining() int { return len(r.b) - r.pos }

func (r *reader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, engerr.New(engerr.WasmInvalidModule)
	}
	c := r.b[r.pos]
	r.pos++
	return c, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, engerr.New(engerr.WasmInvalidModule)
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// readVarUint32 decodes an unsigned LEB128 value, rejecting encodings
// that overflow 32 bits or run past the buffer.
func (r *reader) readVarUint32() (uint32, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 35 {
			return 0, engerr.New(engerr.WasmInvalidModule)
		}
	}
	if result > 0xffffffff {
		return 0, engerr.New(engerr.WasmInvalidModule)
	}
	return uint32(result), nil
}

// readVarInt32 decodes a signed LEB128 value (used for i32.const offset
// expressions in active data segments).
func (r *reader) readVarInt32() (int32, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.readByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 35 {
			return 0, engerr.New(engerr.WasmInvalidModule)
		}
	}
	if shift < 32 && b&0x40 != 0 {
		result |= -1 << shift
	}
	if result < -(1<<31) || result > (1<<31-1) {
		return 0, engerr.New(engerr.WasmInvalidModule)
	}
	return int32(result), nil
}

// section is one top-level module section: its id and raw payload.
type section struct {
	id      byte
	payload []byte
}

// parseSections validates the module header and splits the remainder
// into its top-level sections, in file order.
func parseSections(wasm []byte) ([]section, error) {
	if len(wasm) < 8 {
		return nil, engerr.New(engerr.WasmInvalidModule)
	}
	var magic, version [4]byte
	copy(magic[:], wasm[0:4])
	copy(version[:], wasm[4:8])
	if magic != wasmMagic || version != wasmVersion {
		return nil, engerr.New(engerr.WasmInvalidModule)
	}

	r := &reader{b: wasm, pos: 8}
	var out []section
	for r.remaining() > 0 {
		id, err := r.readByte()
		if err != nil {
			return nil, err
		}
		size, err := r.readVarUint32()
		if err != nil {
			return nil, err
		}
		payload, err := r.readBytes(int(size))
		if err != nil {
			return nil, err
		}
		out = append(out, section{id: id, payload: payload})
	}
	return out, nil
}

func findSection(secs []section, id byte) ([]byte, bool) {
	for _, s := range secs {
		if s.id == id {
			return s.payload, true
		}
	}
	return nil, false
}

// memoryLimits is the module's declared memory 0 limits, which
// CheckModuleLimits compares against params.MemoryMaxPages. runtime.go
// does not read it; it caps the wazero instance at params.MemoryMaxPages
// directly.
type memoryLimits struct {
	initial uint32
	max     uint32
	hasMax  bool
}

func parseMemorySection(payload []byte) (memoryLimits, error) {
	r := &reader{b: payload}
	count, err := r.readVarUint32()
	if err != nil {
		return memoryLimits{}, err
	}
	if count == 0 {
		return memoryLimits{}, nil
	}
	flags, err := r.readByte()
	if err != nil {
		return memoryLimits{}, err
	}
	initial, err := r.readVarUint32()
	if err != nil {
		return memoryLimits{}, err
	}
	limits := memoryLimits{initial: initial}
	if flags&0x01 != 0 {
		max, err := r.readVarUint32()
		if err != nil {
			return memoryLimits{}, err
		}
		limits.max = max
		limits.hasMax = true
	}
	return limits, nil
}

// dataSegment is one parsed entry of the data section, active segments
// only carrying a resolved constant i32 offset (the only initializer
// expression shape this engine's toolchain emits).
type dataSegment struct {
	passive bool
	offset  int32
}

func parseDataSection(payload []byte) ([]dataSegment, error) {
	r := &reader{b: payload}
	count, err := r.readVarUint32()
	if err != nil {
		return nil, err
	}
	out := make([]dataSegment, 0, count)
	for i := uint32(0); i < count; i++ {
		flags, err := r.readVarUint32()
		if err != nil {
			return nil, err
		}
		switch flags {
		case 0:
			off, err := readConstI32Expr(r)
			if err != nil {
				return nil, err
			}
			if err := skipByteVec(r); err != nil {
				return nil, err
			}
			out = append(out, dataSegment{offset: off})
		case 1:
			if err := skipByteVec(r); err != nil {
				return nil, err
			}
			out = append(out, dataSegment{passive: true})
		case 2:
			if _, err := r.readVarUint32(); err != nil { // memory index
				return nil, err
			}
			off, err := readConstI32Expr(r)
			if err != nil {
				return nil, err
			}
			if err := skipByteVec(r); err != nil {
				return nil, err
			}
			out = append(out, dataSegment{offset: off})
		default:
			return nil, engerr.New(engerr.WasmInvalidModule)
		}
	}
	return out, nil
}

// readConstI32Expr reads the `i32.const <n> end` initializer expression
// shape every active segment this engine accepts uses; anything else is
// a module this engine cannot statically bounds-check, so it is
// rejected rather than silently admitted.
func readConstI32Expr(r *reader) (int32, error) {
	op, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if op != 0x41 { // i32.const
		return 0, engerr.New(engerr.WasmInvalidModule)
	}
	v, err := r.readVarInt32()
	if err != nil {
		return 0, err
	}
	end, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if end != 0x0b {
		return 0, engerr.New(engerr.WasmInvalidModule)
	}
	return v, nil
}

func skipByteVec(r *reader) error {
	n, err := r.readVarUint32()
	if err != nil {
		return err
	}
	_, err = r.readBytes(int(n))
	return err
}

func countVecEntries(payload []byte) (uint32, error) {
	r := &reader{b: payload}
	return r.readVarUint32()
}
