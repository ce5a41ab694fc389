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

// Nft ports original_source/.../consensus/bic/nft.rs: per-(collection,
// token) balances under `account:<pubkey>:nft:<collection>:<token>`, a
// single owner account per collection (not a permission list) under
// `nft:<collection>:view_account`.
type Nft struct{ env *Env }

func NewNft(env *Env) *Nft { return &Nft{env: env} }

func nftBalanceKey(addr, collection, token []byte) []byte {
	return bcat([]byte("account:"), addr, []byte(":nft:"), collection, []byte(":"), token)
}

func (n *Nft) Balance(address, collection, token []byte) (*big.Int, error) {
	v, ok, err := n.env.KV.Get(nftBalanceKey(address, collection, token))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	val, parsed := parseI128(v)
	if !parsed {
		return nil, engerr.New(engerr.InvalidArgs)
	}
	return val, nil
}

func (n *Nft) BalanceBurnt(collection, token []byte) (*big.Int, error) {
	return n.Balance(params.BurnAddress, collection, token)
}

func (n *Nft) viewAccount(collection []byte) ([]byte, bool, error) {
	return n.env.KV.Get(bcat([]byte("nft:"), collection, []byte(":view_account")))
}

func (n *Nft) Exists(collection []byte) (bool, error) {
	_, ok, err := n.viewAccount(collection)
	return ok, err
}

func (n *Nft) Soulbound(collection []byte) (bool, error) {
	v, ok, err := n.env.KV.Get(bcat([]byte("nft:"), collection, []byte(":soulbound")))
	if err != nil {
		return false, err
	}
	return ok && string(v) == "true", nil
}

func (n *Nft) HasPermission(collection, signer []byte) (bool, error) {
	owner, ok, err := n.viewAccount(collection)
	if err != nil || !ok {
		return false, err
	}
	return string(owner) == string(signer), nil
}

// Transfer is Nft.transfer(receiver, amount, collection, token).
func (n *Nft) Transfer(args [][]byte) error {
	if len(args) != 4 {
		return engerr.New(engerr.InvalidArgs)
	}
	receiver, amountRaw, collection, token := args[0], args[1], args[2], args[3]

	if !validPubkeyShape(receiver) {
		return engerr.New(engerr.InvalidArgs)
	}
	amount, ok := parseI128(amountRaw)
	if !ok || amount.Sign() <= 0 {
		return engerr.New(engerr.InvalidAmount)
	}

	bal, err := n.Balance(n.env.Caller.AccountCaller, collection, token)
	if err != nil {
		return err
	}
	if amount.Cmp(bal) > 0 {
		return engerr.New("insufficient_tokens")
	}
	if sb, err := n.Soulbound(collection); err != nil {
		return err
	} else if sb {
		return engerr.New(engerr.Soulbound)
	}

	neg := new(big.Int).Neg(amount)
	if _, err := n.env.KV.Increment(nftBalanceKey(n.env.Caller.AccountCaller, collection, token), neg); err != nil {
		return err
	}
	if _, err := n.env.KV.Increment(nftBalanceKey(receiver, collection, token), amount); err != nil {
		return err
	}
	return nil
}

// CreateCollection is Nft.create_collection(name, soulbound?).
func (n *Nft) CreateCollection(args [][]byte) error {
	if len(args) < 1 {
		return engerr.New(engerr.InvalidArgs)
	}
	original := args[0]
	soulboundRaw := optArg(args, 1, []byte("false"))

	collection := filterAsciiAlnum(original)
	if string(collection) != string(original) {
		return engerr.New("invalid_collection")
	}
	if len(collection) < 1 {
		return engerr.New("collection_too_short")
	}
	if len(collection) > 32 {
		return engerr.New("collection_too_long")
	}
	if !isSymbolFree(asciiUpper(collection)) {
		return engerr.New("collection_reserved")
	}
	if exists, err := n.Exists(collection); err != nil {
		return err
	} else if exists {
		return engerr.New("collection_exists")
	}

	if err := n.env.KV.Put(bcat([]byte("nft:"), collection, []byte(":view_account")), n.env.Caller.AccountCaller); err != nil {
		return err
	}
	if string(soulboundRaw) == "true" {
		if err := n.env.KV.Put(bcat([]byte("nft:"), collection, []byte(":soulbound")), []byte("true")); err != nil {
			return err
		}
	}
	return nil
}

// Mint is the token-balance increment shared by Nft.mint. It checks that
// the collection exists but makes no permission check.
func (n *Nft) Mint(receiver []byte, amount *big.Int, collection, token []byte) error {
	if !validPubkeyShape(receiver) {
		return engerr.New(engerr.InvalidArgs)
	}
	if amount.Sign() <= 0 {
		return engerr.New(engerr.InvalidAmount)
	}
	if exists, err := n.Exists(collection); err != nil {
		return err
	} else if !exists {
		return engerr.New("collection_doesnt_exist")
	}
	_, err := n.env.KV.Increment(nftBalanceKey(receiver, collection, token), amount)
	return err
}

// CallMint is Nft.mint(receiver, amount, collection, token).
func (n *Nft) CallMint(args [][]byte) error {
	if len(args) != 4 {
		return engerr.New(engerr.InvalidArgs)
	}
	receiver, amountRaw, collection, token := args[0], args[1], args[2], args[3]
	if !validPubkeyShape(receiver) {
		return engerr.New(engerr.InvalidArgs)
	}
	amount, ok := parseI128(amountRaw)
	if !ok {
		return engerr.New(engerr.InvalidAmount)
	}
	owner, ok2, err := n.viewAccount(collection)
	if err != nil {
		return err
	}
	if !ok2 {
		return engerr.New("collection_doesnt_exist")
	}
	if string(owner) != string(n.env.Caller.AccountCaller) {
		return engerr.New("no_permissions")
	}
	return n.Mint(receiver, amount, collection, token)
}
