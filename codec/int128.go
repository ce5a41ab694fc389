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
)

// Int128 is a sign/magnitude integer wide enough for the var-int term's
// 1..16 byte magnitude (up to 128 bits plus sign). It wraps math/big so
// the engine's accounting code (balances, budgets, i128 deltas) gets
// ordinary arithmetic without reinventing bignum math; the teacher itself
// leans on math/big throughout blockchain/state_transition.go for the
// same reason.
type Int128 struct {
	v *big.Int
}

func Int128FromInt64(x int64) Int128 { return Int128{v: big.NewInt(x)} }

func Int128FromBig(x *big.Int) Int128 { return Int128{v: new(big.Int).Set(x)} }

func Int128Zero() Int128 { return Int128{v: big.NewInt(0)} }

func (i Int128) Big() *big.Int {
	if i.v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(i.v)
}

func (i Int128) Sign() int {
	if i.v == nil {
		return 0
	}
	return i.v.Sign()
}

func (i Int128) Cmp(o Int128) int { return i.Big().Cmp(o.Big()) }

func (i Int128) Add(o Int128) Int128 { return Int128{v: new(big.Int).Add(i.Big(), o.Big())} }

func (i Int128) Sub(o Int128) Int128 { return Int128{v: new(big.Int).Sub(i.Big(), o.Big())} }

func (i Int128) String() string { return i.Big().String() }

// maxMagnitude bounds the magnitude a var-int's 16-byte field can
// represent: 2^128 - 1 in absolute value (sign carried separately in the
// header byte, per spec §4.A).
var maxMagnitude = func() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), 128)
	return m.Sub(m, big.NewInt(1))
}()

// FitsVarInt reports whether i's magnitude fits in the 16-byte var-int
// encoding.
func (i Int128) FitsVarInt() bool {
	mag := new(big.Int).Abs(i.Big())
	return mag.Cmp(maxMagnitude) <= 0
}
