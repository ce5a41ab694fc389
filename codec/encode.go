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

package codec

import (
	"bytes"
	"math/big"

	"github.com/pkg/errors"
)

// ErrNotCanonical is returned by Decode when the input bytes encode a
// value correctly but not in the single canonical form the format
// requires (e.g. a proplist whose keys are not strictly ascending).
var ErrNotCanonical = errors.New("codec: not canonical")

// ErrTrailingBytes is returned when Decode consumes a valid term but
// bytes remain afterward.
var ErrTrailingBytes = errors.New("codec: trailing bytes")

// Encode serializes t into its canonical, self-describing byte
// representation: a leading tag byte (0/1/2/3/5/6/7) followed by
// whatever payload that tag requires. EncodeVarInt is the untagged
// building block shared by a standalone var-int term's payload and by
// every length prefix (binary/list/proplist counts are "var-int" in the
// same raw sense, without their own tag byte).
func Encode(t Term) []byte {
	var buf bytes.Buffer
	encodeInto(&buf, t)
	return buf.Bytes()
}

func encodeInto(buf *bytes.Buffer, t Term) {
	switch t.Kind {
	case KindNil:
		buf.WriteByte(byte(TagNil))
	case KindBool:
		if t.Bool {
			buf.WriteByte(byte(TagBoolT))
		} else {
			buf.WriteByte(byte(TagBoolF))
		}
	case KindInt:
		buf.WriteByte(byte(TagVarInt))
		buf.Write(EncodeVarInt(t.Int))
	case KindBinary:
		buf.WriteByte(byte(TagBinary))
		buf.Write(encodeLength(len(t.Bytes)))
		buf.Write(t.Bytes)
	case KindList:
		buf.WriteByte(byte(TagList))
		buf.Write(encodeLength(len(t.List)))
		for _, item := range t.List {
			encodeInto(buf, item)
		}
	case KindProplist:
		buf.WriteByte(byte(TagProplist))
		buf.Write(encodeLength(len(t.Map)))
		for _, pair := range t.Map {
			encodeInto(buf, pair.Key)
			encodeInto(buf, pair.Value)
		}
	}
}

// encodeLength renders a non-negative count using the same raw
// header+magnitude shape as EncodeVarInt (never negative, so the sign
// bit is always clear).
func encodeLength(n int) []byte {
	return EncodeVarInt(Int128FromInt64(int64(n)))
}

// EncodeVarInt renders v as the raw header-byte + big-endian-magnitude
// sequence of spec.md §4.A/§8, with no leading tag byte:
//
//	EncodeVarInt(0)  == []byte{0x00}
//	EncodeVarInt(1)  == []byte{0x01, 0x01}
//	EncodeVarInt(-1) == []byte{0x81, 0x01}
func EncodeVarInt(v Int128) []byte {
	var buf bytes.Buffer
	mag := v.Big()
	if mag.Sign() == 0 {
		buf.WriteByte(0x00)
		return buf.Bytes()
	}
	neg := mag.Sign() < 0
	abs := new(big.Int).Abs(mag)
	b := abs.Bytes() // big-endian, no leading zero byte, len >= 1
	if len(b) > 16 {
		panic("codec: var-int magnitude exceeds 16 bytes")
	}
	header := byte(len(b))
	if neg {
		header |= 0x80
	}
	buf.WriteByte(header)
	buf.Write(b)
	return buf.Bytes()
}
