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

// TreasuryDonationAddress receives the 25% early-unlock slash
// (lockup_prime.rs's TREASURY_DONATION_ADDRESS).
var TreasuryDonationAddress = []byte{
	149, 216, 55, 255, 29, 8, 239, 251, 139, 112, 30, 29, 199, 57, 90, 67,
	198, 220, 101, 18, 228, 100, 100, 241, 43, 213, 221, 230, 253, 58, 231, 1,
	102, 166, 54, 66, 245, 148, 140, 44, 78, 56, 84, 12, 222, 205, 57, 210,
}

type lockupTier struct {
	epochs     uint64
	multiplier uint64
}

// lockupTiers is lockup_prime.rs's tier table verbatim.
var lockupTiers = map[string]lockupTier{
	"magic":  {0, 1},
	"magic2": {1, 1},
	"7d":     {10, 13},
	"30d":    {45, 17},
	"90d":    {135, 27},
	"180d":   {270, 35},
	"365d":   {547, 54},
}

// LockupPrime ports original_source/.../consensus/bic/lockup_prime.rs:
// PRIME-point vaults with a tiered time-lock multiplier and a daily
// check-in streak bonus.
type LockupPrime struct {
	env    *Env
	coin   *Coin
	lockup *Lockup
}

func NewLockupPrime(env *Env) *LockupPrime {
	return &LockupPrime{env: env, coin: NewCoin(env), lockup: NewLockup(env)}
}

func (l *LockupPrime) ensurePrimeCoin() error {
	exists, err := l.coin.Exists([]byte("PRIME"))
	if err != nil || exists {
		return err
	}
	if _, err := l.env.KV.Increment([]byte("coin:PRIME:totalSupply"), big.NewInt(0)); err != nil {
		return err
	}
	if err := l.env.KV.Put([]byte("coin:PRIME:permission"), encodeBinaryList([][]byte{TreasuryDonationAddress})); err != nil {
		return err
	}
	if err := l.env.KV.Put([]byte("coin:PRIME:mintable"), []byte("true")); err != nil {
		return err
	}
	if err := l.env.KV.Put([]byte("coin:PRIME:pausable"), []byte("true")); err != nil {
		return err
	}
	return l.env.KV.Put([]byte("coin:PRIME:soulbound"), []byte("true"))
}

// Lock is LockupPrime.lock(amount, tier).
func (l *LockupPrime) Lock(args [][]byte) error {
	if err := l.ensurePrimeCoin(); err != nil {
		return err
	}
	if len(args) != 2 {
		return engerr.New(engerr.InvalidArgs)
	}
	amountRaw, tierRaw := args[0], args[1]
	amount, ok := parseI128(amountRaw)
	if !ok {
		return engerr.New(engerr.InvalidAmount)
	}
	tier, ok := lockupTiers[string(tierRaw)]
	if !ok {
		return engerr.New("invalid_tier")
	}

	oneAMA := new(big.Int).SetUint64(1_000_000_000)
	if amount.Cmp(oneAMA) <= 0 {
		return engerr.New(engerr.InvalidAmount)
	}
	balance, err := l.coin.Balance(l.env.Caller.AccountCaller, []byte("AMA"))
	if err != nil {
		return err
	}
	if amount.Cmp(balance) > 0 {
		return engerr.New(engerr.InsufficientFunds)
	}
	if _, err := l.env.KV.Increment(coinBalanceKey(l.env.Caller.AccountCaller, []byte("AMA")), new(big.Int).Neg(amount)); err != nil {
		return err
	}

	idx, err := l.env.KV.Increment([]byte("bic:lockup_prime:unique_index"), big.NewInt(1))
	if err != nil {
		return err
	}
	unlockEpoch := l.env.Caller.EntryEpoch + tier.epochs
	value := bcat(tierRaw, []byte("-"), []byte(strconv.FormatUint(tier.multiplier, 10)),
		[]byte("-"), []byte(strconv.FormatUint(unlockEpoch, 10)), []byte("-"), []byte(amount.String()))
	key := bcat([]byte("bic:lockup_prime:vault:"), l.env.Caller.AccountCaller, []byte(":"), []byte(idx.String()))
	return l.env.KV.Put(key, value)
}

// Unlock is LockupPrime.unlock(vault_index).
func (l *LockupPrime) Unlock(args [][]byte) error {
	if len(args) != 1 {
		return engerr.New(engerr.InvalidArgs)
	}
	vaultIndex := args[0]
	vaultKey := bcat([]byte("bic:lockup_prime:vault:"), l.env.Caller.AccountCaller, []byte(":"), vaultIndex)

	vault, ok, err := l.env.KV.Get(vaultKey)
	if err != nil {
		return err
	}
	if !ok {
		return engerr.New("invalid_vault")
	}
	parts := bytes.SplitN(vault, []byte("-"), 4)
	if len(parts) != 4 {
		return engerr.New("invalid_vault")
	}
	multiplier, ok := parseUint64(parts[1])
	if !ok {
		return engerr.New("invalid_multiplier")
	}
	unlockEpoch, ok := parseUint64(parts[2])
	if !ok {
		return engerr.New("invalid_unlock_epoch")
	}
	unlockAmount, ok := parseUint64(parts[3])
	if !ok {
		return engerr.New("invalid_unlock_amount")
	}

	if l.env.Caller.EntryEpoch < unlockEpoch {
		penalty := unlockAmount / 4
		disbursement := unlockAmount - penalty
		if _, err := l.env.KV.Increment(coinBalanceKey(TreasuryDonationAddress, []byte("AMA")), new(big.Int).SetUint64(penalty)); err != nil {
			return err
		}
		relockEpoch := l.env.Caller.EntryEpoch + 5
		if err := l.lockup.CreateLock(l.env.Caller.AccountCaller, []byte("AMA"), new(big.Int).SetUint64(disbursement), relockEpoch); err != nil {
			return err
		}
	} else {
		primePoints := new(big.Int).SetUint64(unlockAmount * multiplier)
		if err := l.coin.Mint(l.env.Caller.AccountCaller, primePoints, []byte("PRIME")); err != nil {
			return err
		}
		if _, err := l.env.KV.Increment(coinBalanceKey(l.env.Caller.AccountCaller, []byte("AMA")), new(big.Int).SetUint64(unlockAmount)); err != nil {
			return err
		}
	}
	return l.env.KV.Delete(vaultKey)
}

// DailyCheckin is LockupPrime.daily_checkin(vault_index): a 2-epoch
// check-in window, a 30-in-a-row streak bonus (lockup_prime.rs verbatim).
func (l *LockupPrime) DailyCheckin(args [][]byte) error {
	if len(args) != 1 {
		return engerr.New(engerr.InvalidArgs)
	}
	vaultIndex := args[0]
	vaultKey := bcat([]byte("bic:lockup_prime:vault:"), l.env.Caller.AccountCaller, []byte(":"), vaultIndex)
	vault, ok, err := l.env.KV.Get(vaultKey)
	if err != nil {
		return err
	}
	if !ok {
		return engerr.New("invalid_vault")
	}
	parts := bytes.SplitN(vault, []byte("-"), 4)
	if len(parts) != 4 {
		return engerr.New("invalid_vault")
	}
	unlockAmount, ok := parseUint64(parts[3])
	if !ok {
		return engerr.New("invalid_unlock_amount")
	}

	nextCheckinKey := bcat([]byte("bic:lockup_prime:next_checkin_epoch:"), l.env.Caller.AccountCaller)
	nextCheckinEpoch := l.env.Caller.EntryEpoch
	if v, ok, err := l.env.KV.Get(nextCheckinKey); err != nil {
		return err
	} else if ok {
		n, parsed := parseUint64(v)
		if !parsed {
			return engerr.New("invalid_next_checkin_epoch")
		}
		nextCheckinEpoch = n
	}

	delta := int64(l.env.Caller.EntryEpoch) - int64(nextCheckinEpoch)
	streakKey := bcat([]byte("bic:lockup_prime:daily_streak:"), l.env.Caller.AccountCaller)

	switch {
	case delta == 0 || delta == 1:
		if err := l.env.KV.Put(nextCheckinKey, []byte(strconv.FormatUint(l.env.Caller.EntryEpoch+2, 10))); err != nil {
			return err
		}
		dailyBonus := unlockAmount / 100
		if err := l.coin.Mint(l.env.Caller.AccountCaller, new(big.Int).SetUint64(dailyBonus), []byte("PRIME")); err != nil {
			return err
		}
		streak, err := l.env.KV.Increment(streakKey, big.NewInt(1))
		if err != nil {
			return err
		}
		if streak.Cmp(big.NewInt(30)) >= 0 {
			if err := l.env.KV.Put(streakKey, []byte("0")); err != nil {
				return err
			}
			streakBonus := dailyBonus * 30
			if err := l.coin.Mint(l.env.Caller.AccountCaller, new(big.Int).SetUint64(streakBonus), []byte("PRIME")); err != nil {
				return err
			}
		}
	case delta > 2:
		if err := l.env.KV.Put(nextCheckinKey, []byte(strconv.FormatUint(l.env.Caller.EntryEpoch+2, 10))); err != nil {
			return err
		}
		if err := l.env.KV.Put(streakKey, []byte("0")); err != nil {
			return err
		}
	default:
		// already checked in for the day, 2-epoch window
	}
	return nil
}
