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
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntEdgeCases(t *testing.T) {
	assert.Equal(t, []byte{0x00}, EncodeVarInt(Int128FromInt64(0)))
	assert.Equal(t, []byte{0x01, 0x01}, EncodeVarInt(Int128FromInt64(1)))
	assert.Equal(t, []byte{0x81, 0x01}, EncodeVarInt(Int128FromInt64(-1)))

	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	enc := EncodeVarInt(Int128FromBig(min))
	require.Len(t, enc, 1+16)
	assert.Equal(t, byte(0x80|16), enc[0])
}

func TestVarIntRawRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 12345, -9876, 255, -255} {
		b := EncodeVarInt(Int128FromInt64(v))
		got, rest, err := DecodeVarInt(b)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, int64(v), got.Big().Int64())
	}
}

func TestVarIntRejects0x80(t *testing.T) {
	_, _, err := DecodeVarInt([]byte{0x80})
	assert.Error(t, err)
}

func TestVarIntRejectsTooLongOrLeadingZero(t *testing.T) {
	tooLong := append([]byte{17}, make([]byte, 17)...)
	_, _, err := DecodeVarInt(tooLong)
	assert.Error(t, err)

	leadingZero := []byte{0x02, 0x00, 0x01}
	_, _, err = DecodeVarInt(leadingZero)
	assert.Error(t, err)
}

func TestRoundTripTerms(t *testing.T) {
	terms := []Term{
		Nil(),
		Bool(true),
		Bool(false),
		Int64(0),
		Int64(12345),
		Int64(-9876),
		Binary([]byte("hello world")),
		Binary(nil),
		List(Int64(1), Int64(2), Binary([]byte("x"))),
		Proplist(
			Pair{Key: Binary([]byte("a")), Value: Int64(1)},
			Pair{Key: Binary([]byte("b")), Value: Int64(2)},
		),
	}
	for _, term := range terms {
		b := Encode(term)
		got, err := Decode(b)
		require.NoError(t, err)
		assert.True(t, Equal(term, got))
		assert.Equal(t, b, Encode(got))
	}
}

func TestRejectsDescendingProplistKeys(t *testing.T) {
	good := Proplist(
		Pair{Key: Binary([]byte("a")), Value: Int64(1)},
		Pair{Key: Binary([]byte("b")), Value: Int64(2)},
	)
	b := Encode(good)
	_, err := Decode(b)
	require.NoError(t, err)

	bad := Proplist(
		Pair{Key: Binary([]byte("b")), Value: Int64(2)},
		Pair{Key: Binary([]byte("a")), Value: Int64(1)},
	)
	bb := Encode(bad)
	_, err = Decode(bb)
	assert.ErrorIs(t, err, ErrNotCanonical)
}

func TestRejectsEqualProplistKeys(t *testing.T) {
	bad := Proplist(
		Pair{Key: Binary([]byte("a")), Value: Int64(1)},
		Pair{Key: Binary([]byte("a")), Value: Int64(2)},
	)
	b := Encode(bad)
	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrNotCanonical)
}

func TestRejectsTrailingBytes(t *testing.T) {
	b := append(Encode(Int64(1)), 0xFF)
	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrTrailingBytes)
}
