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

// Package codec implements the canonical, self-describing, length-prefixed
// term encoding of spec.md §4.A: the single on-the-wire and on-disk format
// for blocks, transactions, attestations and BIC payloads.
package codec

import "fmt"

// Tag identifies the shape of an encoded term.
type Tag byte

const (
	TagNil      Tag = 0
	TagBoolF    Tag = 1
	TagBoolT    Tag = 2
	TagVarInt   Tag = 3
	TagBinary   Tag = 5
	TagList     Tag = 6
	TagProplist Tag = 7
)

// Kind mirrors Tag but collapses the two boolean tags into one Go-facing
// variant so callers switch on a value's shape, not its wire tag.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindBinary
	KindList
	KindProplist
)

// Term is the single value type the codec encodes and decodes. Exactly
// one of the fields is meaningful, selected by Kind.
type Term struct {
	Kind Kind

	Bool  bool
	Int   Int128
	Bytes []byte
	List  []Term
	// Map holds key/value term pairs in strictly ascending order of the
	// key's own encoded byte sequence (the sorted-map / proplist law of
	// §4.A). Encode does not re-sort: callers must build Map already
	// sorted, exactly like the reverse invariant decode enforces.
	Map []Pair
}

// Pair is one key/value entry of a Proplist term.
type Pair struct {
	Key   Term
	Value Term
}

func Nil() Term                  { return Term{Kind: KindNil} }
func Bool(b bool) Term           { return Term{Kind: KindBool, Bool: b} }
func Int64(v int64) Term         { return Term{Kind: KindInt, Int: Int128FromInt64(v)} }
func IntVal(v Int128) Term       { return Term{Kind: KindInt, Int: v} }
func Binary(b []byte) Term       { return Term{Kind: KindBinary, Bytes: b} }
func List(items ...Term) Term    { return Term{Kind: KindList, List: items} }
func Proplist(pairs ...Pair) Term { return Term{Kind: KindProplist, Map: pairs} }

// Equal reports deep equality between two terms, used by the codec's own
// round-trip tests and callers that need structural comparison.
func Equal(a, b Term) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int.Cmp(b.Int) == 0
	case KindBinary:
		return string(a.Bytes) == string(b.Bytes)
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindProplist:
		if len(a.Map) != len(b.Map) {
			return false
		}
		for i := range a.Map {
			if !Equal(a.Map[i].Key, b.Map[i].Key) || !Equal(a.Map[i].Value, b.Map[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (t Term) String() string {
	switch t.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return fmt.Sprintf("%v", t.Bool)
	case KindInt:
		return t.Int.String()
	case KindBinary:
		return fmt.Sprintf("%x", t.Bytes)
	case KindList:
		return fmt.Sprintf("list(%d)", len(t.List))
	case KindProplist:
		return fmt.Sprintf("proplist(%d)", len(t.Map))
	default:
		return "?"
	}
}
