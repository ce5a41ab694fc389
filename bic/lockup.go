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

import (
	"bytes"
	"math/big"
	"strconv"

	"github.com/amacore/engine/engerr"
)

// Lockup ports original_source/.../consensus/bic/lockup.rs: generic
// time-locked vaults keyed by `bic:lockup:vault:<receiver>:<index>`, each
// value the dash-joined ASCII triple `<unlock_epoch>-<amount>-<symbol>`.
type Lockup struct{ env *Env }

func NewLockup(env *Env) *Lockup { return &Lockup{env: env} }

// CreateLock is lockup.rs::create_lock, used directly by LockupPrime's
// early-unlock path as well as any external caller that needs a generic
// time-locked vault.
func (l *Lockup) CreateLock(receiver, symbol []byte, amount *big.Int, unlockEpoch uint64) error {
	if amount.Sign() <= 0 {
		return engerr.New(engerr.InvalidAmount)
	}
	idx, err := l.env.KV.Increment([]byte("bic:lockup:unique_index"), big.NewInt(1))
	if err != nil {
		return err
	}
	value := bcat([]byte(strconv.FormatUint(unlockEpoch, 10)), []byte("-"), []byte(amount.String()), []byte("-"), symbol)
	key := bcat([]byte("bic:lockup:vault:"), receiver, []byte(":"), []byte(idx.String()))
	return l.env.KV.Put(key, value)
}

// Create is Lockup.create(receiver, symbol, amount, unlock_epoch), the
// BIC-dispatchable wrapper around CreateLock.
func (l *Lockup) Create(args [][]byte) error {
	if len(args) != 4 {
		return engerr.New(engerr.InvalidArgs)
	}
	receiver, symbol := args[0], args[1]
	if !validPubkeyShape(receiver) {
		return engerr.New(engerr.InvalidArgs)
	}
	amount, ok := new(big.Int).SetString(string(args[2]), 10)
	if !ok || amount.Sign() <= 0 {
		return engerr.New(engerr.InvalidAmount)
	}
	unlockEpoch, ok := parseUint64(args[3])
	if !ok {
		return engerr.New("invalid_unlock_epoch")
	}
	return l.CreateLock(receiver, symbol, amount, unlockEpoch)
}

// Unlock is Lockup.unlock(vault_index).
func (l *Lockup) Unlock(args [][]byte) error {
	if len(args) != 1 {
		return engerr.New(engerr.InvalidArgs)
	}
	vaultIndex := args[0]
	vaultKey := bcat([]byte("bic:lockup:vault:"), l.env.Caller.AccountCaller, []byte(":"), vaultIndex)

	vault, ok, err := l.env.KV.Get(vaultKey)
	if err != nil {
		return err
	}
	if !ok {
		return engerr.New("invalid_vault")
	}
	parts := bytes.SplitN(vault, []byte("-"), 3)
	if len(parts) != 3 {
		return engerr.New("invalid_vault")
	}
	unlockEpoch, ok := parseUint64(parts[0])
	if !ok {
		return engerr.New("invalid_unlock_epoch")
	}
	amount, ok := parseUint64(parts[1])
	if !ok {
		return engerr.New("invalid_unlock_amount")
	}
	symbol := parts[2]

	if l.env.Caller.EntryEpoch < unlockEpoch {
		return engerr.New("vault_is_locked")
	}
	if _, err := l.env.KV.Increment(coinBalanceKey(l.env.Caller.AccountCaller, symbol), new(big.Int).SetUint64(amount)); err != nil {
		return err
	}
	return l.env.KV.Delete(vaultKey)
}
