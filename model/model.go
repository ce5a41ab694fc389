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

// Package model implements spec.md §4.E: thin wrappers around the codec
// that enforce field presence and numeric ranges for the block/tx types,
// in the shape of the teacher's typed tx bodies
// (blockchain/types/tx_internal_data_value_transfer.go and siblings)
// decoded/encoded through one shared codec.
package model

import (
	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/params"
)

// Action is the signed body's operation: a call into either a guest
// contract (Contract address 48 bytes in Contract) or a BIC handler
// (symbolic Contract name), selecting Function with an ordered argument
// list, and an optional attachment (§3 TX/Action).
type Action struct {
	Op             string
	Contract       []byte
	Function       string
	Args           [][]byte
	AttachedSymbol string
	AttachedAmount string
	HasAttachment  bool
}

// TX is the signed transaction body (§3).
type TX struct {
	Signer []byte // 48-byte pubkey
	Nonce  uint64
	Action Action
}

// TXU is the outer transaction bundle: hash + signature wrapping TX
// (§3/GLOSSARY).
type TXU struct {
	Hash      []byte // 32 bytes
	Signature []byte
	TX        TX
}

// Header is an entry's block header (§3).
type Header struct {
	PrevHash      []byte // 32 bytes
	Height        uint64
	Slot          uint64
	PrevSlot      uint64
	Signer        []byte // 48 bytes
	DR            []byte // 32 bytes
	VR            []byte // 96 bytes
	RootTx        []byte
	RootValidator []byte
}

// Entry is an immutable block: hash, aggregate signature, Header, an
// ordered transaction list, and an optional validator-set mask (§3).
type Entry struct {
	Hash      []byte // 32 bytes
	Signature []byte
	Header    Header
	Txs       []TXU

	HasMask     bool
	Mask        []byte
	MaskSize    uint64
	MaskSetSize uint64
}

// EntryDescriptor is the block-ingestion call's entry metadata (§6
// apply_entry): entry_signer, entry_prev_hash, entry_slot/prev_slot,
// entry_height/epoch, entry_vr, entry_vr_b3, entry_dr.
type EntryDescriptor struct {
	Signer   []byte // 48 bytes
	PrevHash []byte // 32 bytes
	Slot     uint64
	PrevSlot uint64
	Height   uint64
	Epoch    uint64
	VR       []byte // 96 bytes
	VRBlake3 []byte // 32 bytes
	DR       []byte // 32 bytes
}

// Validate enforces §3/§4.E's fixed field widths on an EntryDescriptor.
func (d EntryDescriptor) Validate() error {
	if len(d.Signer) != params.PubkeySize {
		return engerr.New(engerr.InvalidArgs)
	}
	if len(d.PrevHash) != params.HashSize {
		return engerr.New(engerr.InvalidArgs)
	}
	if len(d.VR) != 0 && len(d.VR) != entryVRSize {
		return engerr.New(engerr.InvalidArgs)
	}
	if len(d.VRBlake3) != 0 && len(d.VRBlake3) != params.HashSize {
		return engerr.New(engerr.InvalidArgs)
	}
	if len(d.DR) != 0 && len(d.DR) != params.HashSize {
		return engerr.New(engerr.InvalidArgs)
	}
	return nil
}

// entryVRSize is the verifiable-randomness commitment width (§6:
// "entry_vr (96 B)"): large enough to carry a BLS12-381 G1 signature,
// the construction model.Verifier is shaped for.
const entryVRSize = 96

// Validate enforces §4.E's fixed field widths and range checks on a TX:
// signer must be exactly PubkeySize bytes; nonce is any u64 (including
// zero, the first nonce a fresh account may use).
func (tx TX) Validate() error {
	if len(tx.Signer) != params.PubkeySize {
		return engerr.New(engerr.InvalidArgs)
	}
	return tx.Action.Validate()
}

// Validate enforces §4.E on an Action: Op/Function non-empty, Contract is
// either a 48-byte pubkey (guest VM route) or a short symbolic name (BIC
// route, §4.G/§4.J step 2), and an attachment, if present, carries a
// non-empty symbol.
func (a Action) Validate() error {
	if a.Op == "" || a.Function == "" {
		return engerr.New(engerr.InvalidArgs)
	}
	if len(a.Contract) != params.PubkeySize && !isSymbolicContract(a.Contract) {
		return engerr.New(engerr.InvalidArgs)
	}
	if a.HasAttachment && a.AttachedSymbol == "" {
		return engerr.New(engerr.InvalidArgs)
	}
	return nil
}

// isSymbolicContract reports whether contract looks like one of the BIC
// dispatch names (Coin, Nft, Epoch, Lockup, LockupPrime, Contract)
// rather than a 48-byte guest-contract pubkey (§4.J step 2: "Pubkey-
// shaped contract addresses route to the guest VM; symbolic names route
// to BIC").
func isSymbolicContract(c []byte) bool {
	if len(c) == 0 || len(c) >= params.PubkeySize {
		return false
	}
	for _, b := range c {
		if !((b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')) {
			return false
		}
	}
	return true
}

// IsContractRoute reports whether tx's action targets the guest VM
// (true) or a BIC handler (false), per §4.J step 2.
func (tx TX) IsContractRoute() bool {
	return len(tx.Action.Contract) == params.PubkeySize
}

// Validate enforces §4.E's field widths on a TXU plus its embedded TX.
func (u TXU) Validate() error {
	if len(u.Hash) != params.HashSize {
		return engerr.New(engerr.InvalidArgs)
	}
	if len(u.Signature) != params.SignatureSize {
		return engerr.New(engerr.InvalidArgs)
	}
	return u.TX.Validate()
}

// Validate enforces §4.E's field widths on a Header.
func (h Header) Validate() error {
	if len(h.PrevHash) != params.HashSize {
		return engerr.New(engerr.InvalidArgs)
	}
	if len(h.Signer) != params.PubkeySize {
		return engerr.New(engerr.InvalidArgs)
	}
	if len(h.DR) != 0 && len(h.DR) != params.HashSize {
		return engerr.New(engerr.InvalidArgs)
	}
	if len(h.VR) != 0 && len(h.VR) != entryVRSize {
		return engerr.New(engerr.InvalidArgs)
	}
	return nil
}

// Validate enforces §4.E's field widths on an Entry and recursively on
// its Header and every TXU.
func (e Entry) Validate() error {
	if len(e.Hash) != params.HashSize {
		return engerr.New(engerr.InvalidArgs)
	}
	if err := e.Header.Validate(); err != nil {
		return err
	}
	for _, tx := range e.Txs {
		if err := tx.Validate(); err != nil {
			return err
		}
	}
	return nil
}
