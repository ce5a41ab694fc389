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

import "github.com/amacore/engine/codec"

// encodeBinaryList and decodeBinaryListContains port the
// eetf_list_of_binaries helper from
// original_source/.../consensus/bic/mod.rs: an admin/permission list is
// just a codec list of raw pubkey binaries.
func encodeBinaryList(items [][]byte) []byte {
	terms := make([]codec.Term, len(items))
	for i, it := range items {
		terms[i] = codec.Binary(it)
	}
	return codec.Encode(codec.List(terms...))
}

func decodeBinaryListContains(encoded, needle []byte) (bool, error) {
	t, err := codec.Decode(encoded)
	if err != nil {
		return false, err
	}
	if t.Kind != codec.KindList {
		return false, nil
	}
	for _, item := range t.List {
		if item.Kind == codec.KindBinary && string(item.Bytes) == string(needle) {
			return true, nil
		}
	}
	return false, nil
}
