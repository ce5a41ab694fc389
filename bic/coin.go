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
	"math/big"

	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/params"
)

// Coin ports original_source/.../consensus/bic/coin.rs: fungible balances
// keyed by `account:<pubkey>:balance:<symbol>`, plus per-symbol metadata
// under `coin:<symbol>:{totalSupply,permission,mintable,pausable,paused,soulbound}`.
type Coin struct{ env *Env }

func NewCoin(env *Env) *Coin { return &Coin{env: env} }

func coinBalanceKey(addr, symbol []byte) []byte {
	return bcat([]byte("account:"), addr, []byte(":balance:"), symbol)
}

// Balance returns address's balance of symbol, defaulting to zero.
func (c *Coin) Balance(address, symbol []byte) (*big.Int, error) {
	v, ok, err := c.env.KV.Get(coinBalanceKey(address, symbol))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	n, parsed := parseI128(v)
	if !parsed {
		return nil, engerr.New(engerr.InvalidArgs)
	}
	return n, nil
}

func (c *Coin) BalanceBurnt(symbol []byte) (*big.Int, error) {
	return c.Balance(params.BurnAddress, symbol)
}

func (c *Coin) metaFlag(symbol []byte, suffix string) (bool, error) {
	v, ok, err := c.env.KV.Get(bcat([]byte("coin:"), symbol, []byte(":"+suffix)))
	if err != nil {
		return false, err
	}
	return ok && string(v) == "true", nil
}

func (c *Coin) Mintable(symbol []byte) (bool, error)  { return c.metaFlag(symbol, "mintable") }
func (c *Coin) Pausable(symbol []byte) (bool, error)  { return c.metaFlag(symbol, "pausable") }
func (c *Coin) Soulbound(symbol []byte) (bool, error) { return c.metaFlag(symbol, "soulbound") }

func (c *Coin) Paused(symbol []byte) (bool, error) {
	v, ok, err := c.env.KV.Get(bcat([]byte("coin:"), symbol, []byte(":paused")))
	if err != nil {
		return false, err
	}
	if !ok || string(v) != "true" {
		return false, nil
	}
	return c.Pausable(symbol)
}

func (c *Coin) Exists(symbol []byte) (bool, error) {
	return c.env.KV.Exists(bcat([]byte("coin:"), symbol, []byte(":totalSupply")))
}

func (c *Coin) TotalSupply(symbol []byte) (*big.Int, error) {
	v, ok, err := c.env.KV.Get(bcat([]byte("coin:"), symbol, []byte(":totalSupply")))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	n, parsed := parseI128(v)
	if !parsed {
		return nil, engerr.New(engerr.InvalidArgs)
	}
	return n, nil
}

// HasPermission checks whether signer is listed in symbol's codec-encoded
// admin list (coin.rs::has_permission).
func (c *Coin) HasPermission(symbol, signer []byte) (bool, error) {
	v, ok, err := c.env.KV.Get(bcat([]byte("coin:"), symbol, []byte(":permission")))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return decodeBinaryListContains(v, signer)
}

func validPubkeyShape(b []byte) bool { return len(b) == params.PubkeySize }

// Transfer is Coin.transfer(receiver, amount, symbol).
func (c *Coin) Transfer(args [][]byte) error {
	if len(args) != 3 {
		return engerr.New(engerr.InvalidArgs)
	}
	receiver, amountRaw, symbol := args[0], args[1], args[2]

	if !validPubkeyShape(receiver) {
		return engerr.New(engerr.InvalidArgs)
	}
	amount, ok := parseI128(amountRaw)
	if !ok || amount.Sign() <= 0 {
		return engerr.New(engerr.InvalidAmount)
	}

	balance, err := c.Balance(c.env.Caller.AccountCaller, symbol)
	if err != nil {
		return err
	}
	if amount.Cmp(balance) > 0 {
		return engerr.New(engerr.InsufficientFunds)
	}

	if paused, err := c.Paused(symbol); err != nil {
		return err
	} else if paused {
		return engerr.New(engerr.Paused)
	}
	if sb, err := c.Soulbound(symbol); err != nil {
		return err
	} else if sb {
		return engerr.New(engerr.Soulbound)
	}

	neg := new(big.Int).Neg(amount)
	if _, err := c.env.KV.Increment(coinBalanceKey(c.env.Caller.AccountCaller, symbol), neg); err != nil {
		return err
	}
	if _, err := c.env.KV.Increment(coinBalanceKey(receiver, symbol), amount); err != nil {
		return err
	}

	if string(symbol) != params.NativeSymbol && isBurnAddress(receiver) {
		if _, err := c.env.KV.Increment(bcat([]byte("coin:"), symbol, []byte(":totalSupply")), neg); err != nil {
			return err
		}
	}
	return nil
}

func isBurnAddress(b []byte) bool {
	if len(b) != len(params.BurnAddress) {
		return false
	}
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// CreateAndMint is Coin.create_and_mint(symbol, amount, decimals?,
// mintable?, pausable?, soulbound?).
func (c *Coin) CreateAndMint(args [][]byte) error {
	if len(args) < 2 {
		return engerr.New(engerr.InvalidArgs)
	}
	symbolOriginal, amountRaw := args[0], args[1]
	decimalsRaw := optArg(args, 2, []byte("9"))
	mintableRaw := optArg(args, 3, []byte("false"))
	pausableRaw := optArg(args, 4, []byte("false"))
	soulboundRaw := optArg(args, 5, []byte("false"))

	symbol := filterAsciiAlnum(symbolOriginal)
	if string(symbol) != string(symbolOriginal) {
		return engerr.New("invalid_symbol")
	}
	if len(symbol) < 1 {
		return engerr.New("symbol_too_short")
	}
	if len(symbol) > 32 {
		return engerr.New("symbol_too_long")
	}
	if !isSymbolFree(asciiUpper(symbol)) {
		return engerr.New(engerr.SymbolReserved)
	}
	if exists, err := c.Exists(symbol); err != nil {
		return err
	} else if exists {
		return engerr.New("symbol_exists")
	}

	amount, ok := parseI128(amountRaw)
	if !ok || amount.Sign() <= 0 {
		return engerr.New(engerr.InvalidAmount)
	}
	decimals, ok := parseUint64(decimalsRaw)
	if !ok || decimals >= 10 {
		return engerr.New("invalid_decimals")
	}

	if _, err := c.env.KV.Increment(coinBalanceKey(c.env.Caller.AccountCaller, symbol), amount); err != nil {
		return err
	}
	if _, err := c.env.KV.Increment(bcat([]byte("coin:"), symbol, []byte(":totalSupply")), amount); err != nil {
		return err
	}
	if err := c.env.KV.Put(bcat([]byte("coin:"), symbol, []byte(":permission")), encodeBinaryList([][]byte{c.env.Caller.AccountCaller})); err != nil {
		return err
	}
	if string(mintableRaw) == "true" {
		if err := c.env.KV.Put(bcat([]byte("coin:"), symbol, []byte(":mintable")), []byte("true")); err != nil {
			return err
		}
	}
	if string(pausableRaw) == "true" {
		if err := c.env.KV.Put(bcat([]byte("coin:"), symbol, []byte(":pausable")), []byte("true")); err != nil {
			return err
		}
	}
	if string(soulboundRaw) == "true" {
		if err := c.env.KV.Put(bcat([]byte("coin:"), symbol, []byte(":soulbound")), []byte("true")); err != nil {
			return err
		}
	}
	return nil
}

// Mint is the balance/total-supply increment shared by Coin.mint and
// LockupPrime's PRIME minting (coin.rs::mint). It checks that the symbol
// exists, is mintable and is not paused, but makes no permission check.
func (c *Coin) Mint(receiver []byte, amount *big.Int, symbol []byte) error {
	if !validPubkeyShape(receiver) {
		return engerr.New(engerr.InvalidArgs)
	}
	if amount.Sign() <= 0 {
		return engerr.New(engerr.InvalidAmount)
	}
	if exists, err := c.Exists(symbol); err != nil {
		return err
	} else if !exists {
		return engerr.New("symbol_doesnt_exist")
	}
	if mintable, err := c.Mintable(symbol); err != nil {
		return err
	} else if !mintable {
		return engerr.New("not_mintable")
	}
	if paused, err := c.Paused(symbol); err != nil {
		return err
	} else if paused {
		return engerr.New(engerr.Paused)
	}

	if _, err := c.env.KV.Increment(coinBalanceKey(receiver, symbol), amount); err != nil {
		return err
	}
	if _, err := c.env.KV.Increment(bcat([]byte("coin:"), symbol, []byte(":totalSupply")), amount); err != nil {
		return err
	}
	return nil
}

// CallMint is Coin.mint(receiver, amount, symbol): requires caller
// permission, then defers to Mint.
func (c *Coin) CallMint(args [][]byte) error {
	if len(args) != 3 {
		return engerr.New(engerr.InvalidArgs)
	}
	receiver, amountRaw, symbol := args[0], args[1], args[2]
	if !validPubkeyShape(receiver) {
		return engerr.New(engerr.InvalidArgs)
	}
	amount, ok := parseI128(amountRaw)
	if !ok {
		return engerr.New(engerr.InvalidAmount)
	}
	if ok, err := c.HasPermission(symbol, c.env.Caller.AccountCaller); err != nil {
		return err
	} else if !ok {
		return engerr.New("no_permissions")
	}
	return c.Mint(receiver, amount, symbol)
}

// Pause is Coin.pause(symbol, direction).
func (c *Coin) Pause(args [][]byte) error {
	if len(args) != 2 {
		return engerr.New(engerr.InvalidArgs)
	}
	symbol, direction := args[0], args[1]
	if string(direction) != "true" && string(direction) != "false" {
		return engerr.New("invalid_direction")
	}
	if exists, err := c.Exists(symbol); err != nil {
		return err
	} else if !exists {
		return engerr.New("symbol_doesnt_exist")
	}
	if ok, err := c.HasPermission(symbol, c.env.Caller.AccountCaller); err != nil {
		return err
	} else if !ok {
		return engerr.New("no_permissions")
	}
	if pausable, err := c.Pausable(symbol); err != nil {
		return err
	} else if !pausable {
		return engerr.New("not_pausable")
	}
	return c.env.KV.Put(bcat([]byte("coin:"), symbol, []byte(":paused")), direction)
}

func optArg(args [][]byte, i int, def []byte) []byte {
	if i >= len(args) || len(args[i]) == 0 {
		return def
	}
	return args[i]
}

func parseUint64(b []byte) (uint64, bool) {
	n, ok := new(big.Int).SetString(string(b), 10)
	if !ok || n.Sign() < 0 || !n.IsUint64() {
		return 0, false
	}
	return n.Uint64(), true
}
