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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amacore/engine/engerr"
)

func uleb128(n uint32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func sleb128(v int32) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func buildModule(sections map[byte][]byte) []byte {
	out := append([]byte{}, wasmMagic[:]...)
	out = append(out, wasmVersion[:]...)
	for id, payload := range sections {
		out = append(out, id)
		out = append(out, uleb128(uint32(len(payload)))...)
		out = append(out, payload...)
	}
	return out
}

func vecCount(n uint32) []byte { return uleb128(n) }

func TestCheckModuleLimitsValidEmptyModule(t *testing.T) {
	mod := buildModule(nil)
	require.NoError(t, CheckModuleLimits(mod))
}

func TestCheckModuleLimitsRejectsTooManyFunctions(t *testing.T) {
	mod := buildModule(map[byte][]byte{
		secFunction: vecCount(1001),
	})
	err := CheckModuleLimits(mod)
	require.Error(t, err)
	require.Equal(t, errTooManyFunctions, engerr.IDOf(err))
}

func TestCheckModuleLimitsRejectsTooManyExports(t *testing.T) {
	mod := buildModule(map[byte][]byte{
		secExport: vecCount(51),
	})
	err := CheckModuleLimits(mod)
	require.Error(t, err)
	require.Equal(t, errTooManyExports, engerr.IDOf(err))
}

func TestCheckModuleLimitsRejectsTooManyGlobals(t *testing.T) {
	mod := buildModule(map[byte][]byte{
		secGlobal: vecCount(101),
	})
	err := CheckModuleLimits(mod)
	require.Error(t, err)
	require.Equal(t, errTooManyGlobals, engerr.IDOf(err))
}

func TestCheckModuleLimitsRejectsTooManyImports(t *testing.T) {
	mod := buildModule(map[byte][]byte{
		secImport: vecCount(51),
	})
	err := CheckModuleLimits(mod)
	require.Error(t, err)
	require.Equal(t, errTooManyImports, engerr.IDOf(err))
}

func TestCheckModuleLimitsRejectsOversizeMemory(t *testing.T) {
	var payload []byte
	payload = append(payload, vecCount(1)...) // one memory
	payload = append(payload, 0x00)           // flags: no max
	payload = append(payload, uleb128(21)...) // initial pages
	mod := buildModule(map[byte][]byte{secMemory: payload})
	err := CheckModuleLimits(mod)
	require.Error(t, err)
	require.Equal(t, errMemoryTooLarge, engerr.IDOf(err))
}

func TestCheckModuleLimitsRejectsDataBelowReservedRegion(t *testing.T) {
	var payload []byte
	payload = append(payload, vecCount(1)...) // one segment
	payload = append(payload, uleb128(0)...)  // flags: active, implicit memory 0
	payload = append(payload, 0x41)            // i32.const
	payload = append(payload, sleb128(0)...)   // offset 0
	payload = append(payload, 0x0b)            // end
	payload = append(payload, vecCount(0)...) // zero data bytes
	mod := buildModule(map[byte][]byte{secData: payload})
	err := CheckModuleLimits(mod)
	require.Error(t, err)
	require.Equal(t, errDataBelowReserved, engerr.IDOf(err))
}

func TestCheckModuleLimitsAcceptsDataAboveReservedRegion(t *testing.T) {
	var payload []byte
	payload = append(payload, vecCount(1)...)
	payload = append(payload, uleb128(0)...)
	payload = append(payload, 0x41)
	payload = append(payload, sleb128(70000)...)
	payload = append(payload, 0x0b)
	payload = append(payload, vecCount(0)...)
	mod := buildModule(map[byte][]byte{secData: payload})
	require.NoError(t, CheckModuleLimits(mod))
}

func TestCheckModuleLimitsRejectsOversizeModule(t *testing.T) {
	padding := make([]byte, 1<<21)
	mod := append(append([]byte{}, wasmMagic[:]...), wasmVersion[:]...)
	mod = append(mod, padding...)
	err := CheckModuleLimits(mod)
	require.Error(t, err)
	require.Equal(t, errModuleTooLarge, engerr.IDOf(err))
}
