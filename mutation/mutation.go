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

// Package mutation implements spec.md §4.B: the tagged, append-only
// record of forward/reverse state edits that the KV facade emits and the
// apply driver journals, dedups and (on tx failure) replays.
package mutation

// Kind discriminates the four mutation shapes of §3/§4.B.
type Kind int

const (
	Put Kind = iota
	Delete
	SetBit
	ClearBit
)

func (k Kind) String() string {
	switch k {
	case Put:
		return "put"
	case Delete:
		return "delete"
	case SetBit:
		return "set_bit"
	case ClearBit:
		return "clear_bit"
	default:
		return "unknown"
	}
}

// Mutation is one tagged edit against a column family, keyed by table and
// key. BitIndex/BloomSize are only meaningful for SetBit/ClearBit.
type Mutation struct {
	Kind       Kind
	Table      string
	Key        []byte
	Value      []byte
	BitIndex   uint32
	BloomSize  uint32
}

func NewPut(table string, key, value []byte) Mutation {
	return Mutation{Kind: Put, Table: table, Key: key, Value: value}
}

func NewDelete(table string, key []byte) Mutation {
	return Mutation{Kind: Delete, Table: table, Key: key}
}

func NewSetBit(table string, key []byte, bitIndex, bloomSize uint32) Mutation {
	return Mutation{Kind: SetBit, Table: table, Key: key, BitIndex: bitIndex, BloomSize: bloomSize}
}

func NewClearBit(table string, key []byte, bitIndex uint32) Mutation {
	return Mutation{Kind: ClearBit, Table: table, Key: key, BitIndex: bitIndex}
}

// tableKey is the de-duplication identity of a mutation: same table and
// key collide regardless of kind.
func (m Mutation) tableKey() string {
	return m.Table + "\x00" + string(m.Key)
}
