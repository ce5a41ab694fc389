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

package kvstore

import (
	"math/big"

	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/params"
)

// Budget is one of the two i128 "gas" pools a CallerEnv carries (§3):
// execution units or storage bytes. Charge decrements it and aborts with
// the given identifier on underflow; it never goes negative.
type Budget struct {
	remaining *big.Int
	abortID   string
}

// NewBudget creates a Budget starting at amount, aborting with abortID
// when a charge would underflow it.
func NewBudget(amount int64, abortID string) *Budget {
	return &Budget{remaining: big.NewInt(amount), abortID: abortID}
}

// NewBudgetBig is NewBudget for an arbitrary-precision starting amount.
func NewBudgetBig(amount *big.Int, abortID string) *Budget {
	return &Budget{remaining: new(big.Int).Set(amount), abortID: abortID}
}

// Remaining reports the budget's current value.
func (b *Budget) Remaining() *big.Int { return new(big.Int).Set(b.remaining) }

// Charge deducts amount (>= 0) from the budget, aborting on underflow.
func (b *Budget) Charge(amount int64) error {
	return b.ChargeBig(big.NewInt(amount))
}

// ChargeBig is Charge for an arbitrary-precision amount.
func (b *Budget) ChargeBig(amount *big.Int) error {
	next := new(big.Int).Sub(b.remaining, amount)
	if next.Sign() < 0 {
		return engerr.New(b.abortID)
	}
	b.remaining = next
	return nil
}

// execCost is the KV facade's write-path execution-unit cost formula
// (§4.C): a flat base plus a per-byte charge over key+value.
func execCost(keyLen, valueLen int) int64 {
	return params.DBWriteBase + params.DBWriteByte*int64(keyLen+valueLen)
}

// readCost is the read-path execution-unit cost formula.
func readCost(keyLen, valueLen int) int64 {
	return params.DBReadBase + params.DBReadByte*int64(keyLen+valueLen)
}

// newLeafStorageCost is the storage-budget cost of writing a
// previously-absent key (§4.C kv_put).
func newLeafStorageCost(keyLen, valueLen int) int64 {
	return params.NewLeafMerkle + params.StateBytePrice*int64(keyLen+valueLen)
}

// growStorageCost is the storage-budget cost of growing an existing
// key's value by delta bytes (delta may be <= 0, in which case the cost
// is zero: shrinking a value is free).
func growStorageCost(delta int) int64 {
	if delta <= 0 {
		return 0
	}
	return params.StateBytePrice * int64(delta)
}
