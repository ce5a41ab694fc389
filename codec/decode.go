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

	"github.com/pkg/errors"
)

var (
	ErrTruncated    = errors.New("codec: truncated input")
	ErrUnknownTag   = errors.New("codec: unknown tag")
	ErrBadVarInt    = errors.New("codec: malformed var-int")
	ErrLengthNeg    = errors.New("codec: negative length")
	ErrLengthTooBig = errors.New("codec: length magnitude exceeds 16 bytes")
)

// Decode parses exactly one canonical term from b and rejects any
// trailing bytes, per the round-trip law of §4.A/§8.
func Decode(b []byte) (Term, error) {
	t, rest, err := decodeTerm(b)
	if err != nil {
		return Term{}, err
	}
	if len(rest) != 0 {
		return Term{}, ErrTrailingBytes
	}
	return t, nil
}

func decodeTerm(b []byte) (Term, []byte, error) {
	if len(b) == 0 {
		return Term{}, nil, ErrTruncated
	}
	tag := Tag(b[0])
	rest := b[1:]
	switch tag {
	case TagNil:
		return Nil(), rest, nil
	case TagBoolF:
		return Bool(false), rest, nil
	case TagBoolT:
		return Bool(true), rest, nil
	case TagVarInt:
		v, rest2, err := DecodeVarInt(rest)
		if err != nil {
			return Term{}, nil, err
		}
		return IntVal(v), rest2, nil
	case TagBinary:
		n, rest2, err := decodeLength(rest)
		if err != nil {
			return Term{}, nil, err
		}
		if n > len(rest2) {
			return Term{}, nil, ErrTruncated
		}
		return Binary(append([]byte(nil), rest2[:n]...)), rest2[n:], nil
	case TagList:
		n, rest2, err := decodeLength(rest)
		if err != nil {
			return Term{}, nil, err
		}
		items := make([]Term, 0, n)
		cur := rest2
		for i := 0; i < n; i++ {
			var item Term
			var err error
			item, cur, err = decodeTerm(cur)
			if err != nil {
				return Term{}, nil, err
			}
			items = append(items, item)
		}
		return List(items...), cur, nil
	case TagProplist:
		n, rest2, err := decodeLength(rest)
		if err != nil {
			return Term{}, nil, err
		}
		pairs := make([]Pair, 0, n)
		cur := rest2
		var prevKeyBytes []byte
		for i := 0; i < n; i++ {
			var key, val Term
			var err error
			key, cur, err = decodeTerm(cur)
			if err != nil {
				return Term{}, nil, err
			}
			keyBytes := Encode(key)
			if prevKeyBytes != nil && compareBytes(keyBytes, prevKeyBytes) <= 0 {
				return Term{}, nil, ErrNotCanonical
			}
			prevKeyBytes = keyBytes
			val, cur, err = decodeTerm(cur)
			if err != nil {
				return Term{}, nil, err
			}
			pairs = append(pairs, Pair{Key: key, Value: val})
		}
		return Proplist(pairs...), cur, nil
	default:
		return Term{}, nil, ErrUnknownTag
	}
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// DecodeVarInt parses a raw (untagged) header byte plus magnitude into a
// signed Int128, rejecting 0x80 (non-canonical zero), len>16, and
// leading-zero magnitudes. This is the inverse of EncodeVarInt and is
// also what every binary/list/proplist length prefix decodes through.
func DecodeVarInt(b []byte) (Int128, []byte, error) {
	mag, neg, rest, err := decodeSignedMagnitude(b)
	if err != nil {
		return Int128{}, nil, err
	}
	if neg {
		mag.Neg(mag)
	}
	return Int128FromBig(mag), rest, nil
}

// decodeLength parses a var-int magnitude known to be a non-negative
// count (list/proplist/binary length prefixes carry no sign bit meaning
// in the format, but a header byte with the sign bit set is still
// rejected as malformed here since lengths are never negative).
func decodeLength(b []byte) (int, []byte, error) {
	mag, neg, rest, err := decodeSignedMagnitude(b)
	if err != nil {
		return 0, nil, err
	}
	if neg {
		return 0, nil, ErrLengthNeg
	}
	if !mag.IsInt64() || mag.Int64() < 0 {
		return 0, nil, ErrLengthTooBig
	}
	return int(mag.Int64()), rest, nil
}

// decodeSignedMagnitude parses the shared header-byte + big-endian
// magnitude encoding used both by standalone var-int terms and by the
// length prefixes embedded in binary/list/proplist. 0x00 is the only
// legal zero encoding; 0x80 (a negative-zero header) is rejected.
func decodeSignedMagnitude(b []byte) (*big.Int, bool, []byte, error) {
	if len(b) == 0 {
		return nil, false, nil, ErrTruncated
	}
	header := b[0]
	rest := b[1:]
	if header == 0x00 {
		return big.NewInt(0), false, rest, nil
	}
	neg := header&0x80 != 0
	length := int(header & 0x7f)
	if length == 0 {
		// 0x80 itself: sign bit set, zero length -> forbidden non-canonical zero.
		return nil, false, nil, ErrBadVarInt
	}
	if length > 16 {
		return nil, false, nil, ErrLengthTooBig
	}
	if length > len(rest) {
		return nil, false, nil, ErrTruncated
	}
	magBytes := rest[:length]
	if magBytes[0] == 0x00 {
		return nil, false, nil, ErrBadVarInt
	}
	mag := new(big.Int).SetBytes(magBytes)
	return mag, neg, rest[length:], nil
}
