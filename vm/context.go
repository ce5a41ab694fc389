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
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"

	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/params"
)

// CallContext carries the per-call fields the host writes into the
// guest's reserved low-memory region before every invocation (§4.H).
// It is a narrower, VM-local copy of bic.CallerEnv's fields; apply
// builds one from its own CallerEnv for each guest dispatch.
type CallContext struct {
	Seed []byte // 32 bytes

	EntrySlot     uint64
	EntryHeight   uint64
	EntryEpoch    uint64
	EntrySigner   []byte
	EntryPrevHash []byte
	EntryVR       []byte
	EntryDR       []byte

	TxNonce  uint64
	TxSigner []byte

	AccountCurrent []byte
	AccountCaller  []byte
	AccountOrigin  []byte

	AttachedSymbol string
	AttachedAmount string
	HasAttachment  bool
}

// writeScalar writes v as a little-endian u64 at offset.
func writeScalar(mem api.Memory, offset uint32, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	if !mem.Write(offset, buf[:]) {
		return engerr.New(errGuestMemoryWrite)
	}
	return nil
}

// writeField writes a byte-string field: a little-endian i32 length at
// offset, followed immediately by the bytes (§4.H: "Byte-string fields
// are prefixed by a little-endian i32 length at the field's base; a
// missing attachment is indicated by a zero-length symbol header").
func writeField(mem api.Memory, offset uint32, data []byte) error {
	if !mem.WriteUint32Le(offset, uint32(len(data))) {
		return engerr.New(errGuestMemoryWrite)
	}
	if len(data) == 0 {
		return nil
	}
	if !mem.Write(offset+4, data) {
		return engerr.New(errGuestMemoryWrite)
	}
	return nil
}

const errGuestMemoryWrite = "wasm_guest_memory_write"

// writeContext populates every fixed offset §4.H names ahead of a call.
func writeContext(mem api.Memory, c CallContext) error {
	if err := writeField(mem, params.OffsetSeed, c.Seed); err != nil {
		return err
	}

	if err := writeScalar(mem, params.OffsetEntrySlot, c.EntrySlot); err != nil {
		return err
	}
	if err := writeScalar(mem, params.OffsetEntryHeight, c.EntryHeight); err != nil {
		return err
	}
	if err := writeScalar(mem, params.OffsetEntryEpoch, c.EntryEpoch); err != nil {
		return err
	}
	if err := writeField(mem, params.OffsetEntrySigner, c.EntrySigner); err != nil {
		return err
	}
	if err := writeField(mem, params.OffsetEntryPrev, c.EntryPrevHash); err != nil {
		return err
	}
	if err := writeField(mem, params.OffsetEntryVR, c.EntryVR); err != nil {
		return err
	}
	if err := writeField(mem, params.OffsetEntryDR, c.EntryDR); err != nil {
		return err
	}

	if err := writeScalar(mem, params.OffsetTxNonce, c.TxNonce); err != nil {
		return err
	}
	if err := writeField(mem, params.OffsetTxSigner, c.TxSigner); err != nil {
		return err
	}

	if err := writeField(mem, params.OffsetAccCurrent, c.AccountCurrent); err != nil {
		return err
	}
	if err := writeField(mem, params.OffsetAccCaller, c.AccountCaller); err != nil {
		return err
	}
	if err := writeField(mem, params.OffsetAccOrigin, c.AccountOrigin); err != nil {
		return err
	}

	symbol := []byte(c.AttachedSymbol)
	amount := []byte(c.AttachedAmount)
	if !c.HasAttachment {
		symbol = nil
		amount = nil
	}
	if err := writeField(mem, params.OffsetAttachSymbol, symbol); err != nil {
		return err
	}
	if err := writeField(mem, params.OffsetAttachAmount, amount); err != nil {
		return err
	}
	return nil
}

// inBounds reports whether [ptr, ptr+n) lies entirely within mem and
// does not touch the reserved host region, the bound §4.H requires of
// every pointer a guest passes into a host import.
func inBounds(mem api.Memory, ptr, n uint32) bool {
	if n == 0 {
		return ptr <= mem.Size()
	}
	end := uint64(ptr) + uint64(n)
	if end > uint64(mem.Size()) {
		return false
	}
	if ptr < params.ReservedMemoryEnd {
		return false
	}
	return true
}

func readGuestBytes(mem api.Memory, ptr, n uint32) ([]byte, error) {
	if !inBounds(mem, ptr, n) {
		return nil, engerr.New(errGuestPointerOOB)
	}
	b, ok := mem.Read(ptr, n)
	if !ok {
		return nil, engerr.New(errGuestPointerOOB)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

const errGuestPointerOOB = "wasm_guest_pointer_out_of_bounds"

// writeArgTable marshals args into the guest's own linear memory as the
// `u32 count, (u32 ptr, u32 len)*` table shape §4.H fixes for
// import_call, growing memory if the reserved-region scratch space
// beyond ReservedMemoryEnd isn't large enough. It returns the table's
// offset, the single pointer every exported entry point takes (§6: the
// ABI is `(ptr_0,…,ptr_n) -> ()`; this engine always passes the one
// argtable pointer rather than one pointer per argument, a reconstructed
// convention since the source spec never spells out how call arguments
// reach an exported function).
func writeArgTable(mem api.Memory, args [][]byte) (uint32, error) {
	tableOffset := uint32(params.ReservedMemoryEnd)
	tableLen := uint32(4 + 8*len(args))
	dataOffset := tableOffset + tableLen

	needed := tableLen
	for _, a := range args {
		needed += uint32(len(a))
	}
	if tableOffset+needed > mem.Size() {
		growBytes := tableOffset + needed - mem.Size()
		growPages := (growBytes + params.WasmPageSize - 1) / params.WasmPageSize
		if _, ok := mem.Grow(growPages); !ok {
			return 0, engerr.New(errGuestMemoryWrite)
		}
	}

	if !mem.WriteUint32Le(tableOffset, uint32(len(args))) {
		return 0, engerr.New(errGuestMemoryWrite)
	}
	cursor := dataOffset
	for i, a := range args {
		entryOffset := tableOffset + 4 + uint32(i)*8
		if !mem.WriteUint32Le(entryOffset, cursor) {
			return 0, engerr.New(errGuestMemoryWrite)
		}
		if !mem.WriteUint32Le(entryOffset+4, uint32(len(a))) {
			return 0, engerr.New(errGuestMemoryWrite)
		}
		if len(a) > 0 && !mem.Write(cursor, a) {
			return 0, engerr.New(errGuestMemoryWrite)
		}
		cursor += uint32(len(a))
	}
	return tableOffset, nil
}

// decodeArgTable reads the `u32 count, (u32 ptr, u32 len)*` call-argument
// table shape §4.H describes for import_call.
func decodeArgTable(mem api.Memory, ptr uint32) ([][]byte, error) {
	count, ok := mem.ReadUint32Le(ptr)
	if !ok {
		return nil, engerr.New(errGuestPointerOOB)
	}
	args := make([][]byte, 0, count)
	base := ptr + 4
	for i := uint32(0); i < count; i++ {
		entryOffset := base + i*8
		argPtr, ok := mem.ReadUint32Le(entryOffset)
		if !ok {
			return nil, engerr.New(errGuestPointerOOB)
		}
		argLen, ok := mem.ReadUint32Le(entryOffset + 4)
		if !ok {
			return nil, engerr.New(errGuestPointerOOB)
		}
		arg, err := readGuestBytes(mem, argPtr, argLen)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}
