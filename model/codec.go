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

package model

import (
	"math/big"
	"sort"

	"github.com/amacore/engine/codec"
	"github.com/amacore/engine/engerr"
)

// uintTerm renders a u64 as a var-int term without the sign-losing int64
// cast (nonce/slot/height are full-range u64s, §4.E).
func uintTerm(v uint64) codec.Term {
	return codec.Term{Kind: codec.KindInt, Int: codec.Int128FromBig(new(big.Int).SetUint64(v))}
}

// field is one named entry going into a proplist; buildProplist orders
// fields by their encoded key bytes (the canonical ascending-key order of
// §4.A), encoding the keys afresh for each comparison.
type field struct {
	name string
	term codec.Term
}

// buildProplist sorts fs by their encoded key's own byte sequence (the
// proplist law of §4.A/codec.Decode) and renders the codec.Term.
func buildProplist(fs []field) codec.Term {
	sort.Slice(fs, func(i, j int) bool {
		return compareEncoded(fs[i].name, fs[j].name) < 0
	})
	pairs := make([]codec.Pair, len(fs))
	for i, f := range fs {
		pairs[i] = codec.Pair{Key: codec.Binary([]byte(f.name)), Value: f.term}
	}
	return codec.Proplist(pairs...)
}

func compareEncoded(a, b string) int {
	ea := codec.Encode(codec.Binary([]byte(a)))
	eb := codec.Encode(codec.Binary([]byte(b)))
	for i := 0; i < len(ea) && i < len(eb); i++ {
		if ea[i] != eb[i] {
			if ea[i] < eb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ea) < len(eb):
		return -1
	case len(ea) > len(eb):
		return 1
	default:
		return 0
	}
}

// propFields walks t's Proplist pairs back into a name->Term map,
// requiring t itself be a Proplist and every key decode to KindBinary
// (the only key shape this package ever emits).
func propFields(t codec.Term) (map[string]codec.Term, error) {
	if t.Kind != codec.KindProplist {
		return nil, engerr.New(engerr.InvalidArgs)
	}
	out := make(map[string]codec.Term, len(t.Map))
	for _, pair := range t.Map {
		if pair.Key.Kind != codec.KindBinary {
			return nil, engerr.New(engerr.InvalidArgs)
		}
		out[string(pair.Key.Bytes)] = pair.Value
	}
	return out, nil
}

// checkKnownKeys rejects any key in fs not present in known, when strict
// is set (the propagation surface, §4.E: "rejects unknown keys on the
// propagation surface"). Internal decode paths pass strict=false and
// silently ignore extras for forward compatibility.
func checkKnownKeys(fs map[string]codec.Term, known map[string]bool, strict bool) error {
	if !strict {
		return nil
	}
	for k := range fs {
		if !known[k] {
			return engerr.New(engerr.InvalidArgs)
		}
	}
	return nil
}

func requireBinary(fs map[string]codec.Term, key string) ([]byte, error) {
	t, ok := fs[key]
	if !ok || t.Kind != codec.KindBinary {
		return nil, engerr.New(engerr.InvalidArgs)
	}
	return t.Bytes, nil
}

func optionalBinary(fs map[string]codec.Term, key string) ([]byte, bool, error) {
	t, ok := fs[key]
	if !ok {
		return nil, false, nil
	}
	if t.Kind != codec.KindBinary {
		return nil, false, engerr.New(engerr.InvalidArgs)
	}
	return t.Bytes, true, nil
}

func requireUint64(fs map[string]codec.Term, key string) (uint64, error) {
	t, ok := fs[key]
	if !ok || t.Kind != codec.KindInt {
		return 0, engerr.New(engerr.InvalidArgs)
	}
	big := t.Int.Big()
	if big.Sign() < 0 || !big.IsUint64() {
		return 0, engerr.New(engerr.InvalidArgs)
	}
	return big.Uint64(), nil
}

func requireString(fs map[string]codec.Term, key string) (string, error) {
	b, err := requireBinary(fs, key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func optionalString(fs map[string]codec.Term, key string) (string, bool, error) {
	b, ok, err := optionalBinary(fs, key)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(b), true, nil
}

var actionKnownKeys = map[string]bool{
	"op": true, "contract": true, "function": true, "args": true,
	"attached_symbol": true, "attached_amount": true,
}

// EncodeAction renders a into its canonical proplist term.
func EncodeAction(a Action) codec.Term {
	args := make([]codec.Term, len(a.Args))
	for i, arg := range a.Args {
		args[i] = codec.Binary(arg)
	}
	fs := []field{
		{"op", codec.Binary([]byte(a.Op))},
		{"contract", codec.Binary(a.Contract)},
		{"function", codec.Binary([]byte(a.Function))},
		{"args", codec.List(args...)},
	}
	if a.HasAttachment {
		fs = append(fs,
			field{"attached_symbol", codec.Binary([]byte(a.AttachedSymbol))},
			field{"attached_amount", codec.Binary([]byte(a.AttachedAmount))},
		)
	}
	return buildProplist(fs)
}

// DecodeAction parses t (a Proplist) into an Action; strict rejects any
// key outside actionKnownKeys (§4.E propagation-surface rule).
func DecodeAction(t codec.Term, strict bool) (Action, error) {
	fs, err := propFields(t)
	if err != nil {
		return Action{}, err
	}
	if err := checkKnownKeys(fs, actionKnownKeys, strict); err != nil {
		return Action{}, err
	}

	op, err := requireString(fs, "op")
	if err != nil {
		return Action{}, err
	}
	contract, err := requireBinary(fs, "contract")
	if err != nil {
		return Action{}, err
	}
	function, err := requireString(fs, "function")
	if err != nil {
		return Action{}, err
	}
	argsTerm, ok := fs["args"]
	if !ok || argsTerm.Kind != codec.KindList {
		return Action{}, engerr.New(engerr.InvalidArgs)
	}
	args := make([][]byte, len(argsTerm.List))
	for i, item := range argsTerm.List {
		if item.Kind != codec.KindBinary {
			return Action{}, engerr.New(engerr.InvalidArgs)
		}
		args[i] = item.Bytes
	}

	a := Action{Op: op, Contract: contract, Function: function, Args: args}
	if sym, has, err := optionalString(fs, "attached_symbol"); err != nil {
		return Action{}, err
	} else if has {
		amt, _, err := optionalString(fs, "attached_amount")
		if err != nil {
			return Action{}, err
		}
		a.AttachedSymbol = sym
		a.AttachedAmount = amt
		a.HasAttachment = true
	}
	return a, nil
}

var txKnownKeys = map[string]bool{"signer": true, "nonce": true, "action": true}

// EncodeTX renders tx into its canonical proplist term.
func EncodeTX(tx TX) codec.Term {
	return buildProplist([]field{
		{"signer", codec.Binary(tx.Signer)},
		{"nonce", uintTerm(tx.Nonce)},
		{"action", EncodeAction(tx.Action)},
	})
}

// DecodeTX parses t into a TX.
func DecodeTX(t codec.Term, strict bool) (TX, error) {
	fs, err := propFields(t)
	if err != nil {
		return TX{}, err
	}
	if err := checkKnownKeys(fs, txKnownKeys, strict); err != nil {
		return TX{}, err
	}
	signer, err := requireBinary(fs, "signer")
	if err != nil {
		return TX{}, err
	}
	nonce, err := requireUint64(fs, "nonce")
	if err != nil {
		return TX{}, err
	}
	actionTerm, ok := fs["action"]
	if !ok {
		return TX{}, engerr.New(engerr.InvalidArgs)
	}
	action, err := DecodeAction(actionTerm, strict)
	if err != nil {
		return TX{}, err
	}
	return TX{Signer: signer, Nonce: nonce, Action: action}, nil
}

var txuKnownKeys = map[string]bool{"hash": true, "signature": true, "tx": true}

// EncodeTXU renders u into its canonical proplist term.
func EncodeTXU(u TXU) codec.Term {
	return buildProplist([]field{
		{"hash", codec.Binary(u.Hash)},
		{"signature", codec.Binary(u.Signature)},
		{"tx", EncodeTX(u.TX)},
	})
}

// DecodeTXU parses t into a TXU.
func DecodeTXU(t codec.Term, strict bool) (TXU, error) {
	fs, err := propFields(t)
	if err != nil {
		return TXU{}, err
	}
	if err := checkKnownKeys(fs, txuKnownKeys, strict); err != nil {
		return TXU{}, err
	}
	hash, err := requireBinary(fs, "hash")
	if err != nil {
		return TXU{}, err
	}
	sig, err := requireBinary(fs, "signature")
	if err != nil {
		return TXU{}, err
	}
	txTerm, ok := fs["tx"]
	if !ok {
		return TXU{}, engerr.New(engerr.InvalidArgs)
	}
	tx, err := DecodeTX(txTerm, strict)
	if err != nil {
		return TXU{}, err
	}
	return TXU{Hash: hash, Signature: sig, TX: tx}, nil
}

// TxEnvelope is the minimal wire shape the block-ingestion API accepts
// per §6: `{hash, tx:{signer, nonce, action:{...}}, tx_cost}`, with an
// optional top-level signature tolerated alongside it.
type TxEnvelope struct {
	Hash      []byte
	Signature []byte
	TX        TX
	TxCost    string
}

var envelopeKnownKeys = map[string]bool{
	"hash": true, "signature": true, "tx": true, "tx_cost": true,
}

// DecodeTxEnvelope parses the §6 apply_entry wire format for one
// transaction. strict should be true on the propagation surface.
func DecodeTxEnvelope(t codec.Term, strict bool) (TxEnvelope, error) {
	fs, err := propFields(t)
	if err != nil {
		return TxEnvelope{}, err
	}
	if err := checkKnownKeys(fs, envelopeKnownKeys, strict); err != nil {
		return TxEnvelope{}, err
	}
	hash, err := requireBinary(fs, "hash")
	if err != nil {
		return TxEnvelope{}, err
	}
	txTerm, ok := fs["tx"]
	if !ok {
		return TxEnvelope{}, engerr.New(engerr.InvalidArgs)
	}
	tx, err := DecodeTX(txTerm, strict)
	if err != nil {
		return TxEnvelope{}, err
	}
	cost, err := requireString(fs, "tx_cost")
	if err != nil {
		return TxEnvelope{}, err
	}
	sig, _, err := optionalBinary(fs, "signature")
	if err != nil {
		return TxEnvelope{}, err
	}
	return TxEnvelope{Hash: hash, Signature: sig, TX: tx, TxCost: cost}, nil
}

// EncodeTxEnvelope renders e into its wire proplist.
func EncodeTxEnvelope(e TxEnvelope) codec.Term {
	fs := []field{
		{"hash", codec.Binary(e.Hash)},
		{"tx", EncodeTX(e.TX)},
		{"tx_cost", codec.Binary([]byte(e.TxCost))},
	}
	if len(e.Signature) > 0 {
		fs = append(fs, field{"signature", codec.Binary(e.Signature)})
	}
	return buildProplist(fs)
}

var headerKnownKeys = map[string]bool{
	"prev_hash": true, "height": true, "slot": true, "prev_slot": true,
	"signer": true, "dr": true, "vr": true, "root_tx": true, "root_validator": true,
}

// EncodeHeader renders h into its canonical proplist term.
func EncodeHeader(h Header) codec.Term {
	return buildProplist([]field{
		{"prev_hash", codec.Binary(h.PrevHash)},
		{"height", uintTerm(h.Height)},
		{"slot", uintTerm(h.Slot)},
		{"prev_slot", uintTerm(h.PrevSlot)},
		{"signer", codec.Binary(h.Signer)},
		{"dr", codec.Binary(h.DR)},
		{"vr", codec.Binary(h.VR)},
		{"root_tx", codec.Binary(h.RootTx)},
		{"root_validator", codec.Binary(h.RootValidator)},
	})
}

// DecodeHeader parses t into a Header.
func DecodeHeader(t codec.Term, strict bool) (Header, error) {
	fs, err := propFields(t)
	if err != nil {
		return Header{}, err
	}
	if err := checkKnownKeys(fs, headerKnownKeys, strict); err != nil {
		return Header{}, err
	}
	prevHash, err := requireBinary(fs, "prev_hash")
	if err != nil {
		return Header{}, err
	}
	height, err := requireUint64(fs, "height")
	if err != nil {
		return Header{}, err
	}
	slot, err := requireUint64(fs, "slot")
	if err != nil {
		return Header{}, err
	}
	prevSlot, err := requireUint64(fs, "prev_slot")
	if err != nil {
		return Header{}, err
	}
	signer, err := requireBinary(fs, "signer")
	if err != nil {
		return Header{}, err
	}
	dr, err := requireBinary(fs, "dr")
	if err != nil {
		return Header{}, err
	}
	vr, err := requireBinary(fs, "vr")
	if err != nil {
		return Header{}, err
	}
	rootTx, err := requireBinary(fs, "root_tx")
	if err != nil {
		return Header{}, err
	}
	rootValidator, err := requireBinary(fs, "root_validator")
	if err != nil {
		return Header{}, err
	}
	return Header{
		PrevHash: prevHash, Height: height, Slot: slot, PrevSlot: prevSlot,
		Signer: signer, DR: dr, VR: vr, RootTx: rootTx, RootValidator: rootValidator,
	}, nil
}

var entryKnownKeys = map[string]bool{
	"hash": true, "signature": true, "header": true, "txs": true,
	"mask": true, "mask_size": true, "mask_set_size": true,
}

// EncodeEntry renders e into its canonical proplist term.
func EncodeEntry(e Entry) codec.Term {
	txs := make([]codec.Term, len(e.Txs))
	for i, tx := range e.Txs {
		txs[i] = EncodeTXU(tx)
	}
	fs := []field{
		{"hash", codec.Binary(e.Hash)},
		{"signature", codec.Binary(e.Signature)},
		{"header", EncodeHeader(e.Header)},
		{"txs", codec.List(txs...)},
	}
	if e.HasMask {
		fs = append(fs,
			field{"mask", codec.Binary(e.Mask)},
			field{"mask_size", uintTerm(e.MaskSize)},
			field{"mask_set_size", uintTerm(e.MaskSetSize)},
		)
	}
	return buildProplist(fs)
}

// DecodeEntry parses t into an Entry.
func DecodeEntry(t codec.Term, strict bool) (Entry, error) {
	fs, err := propFields(t)
	if err != nil {
		return Entry{}, err
	}
	if err := checkKnownKeys(fs, entryKnownKeys, strict); err != nil {
		return Entry{}, err
	}
	hash, err := requireBinary(fs, "hash")
	if err != nil {
		return Entry{}, err
	}
	sig, err := requireBinary(fs, "signature")
	if err != nil {
		return Entry{}, err
	}
	headerTerm, ok := fs["header"]
	if !ok {
		return Entry{}, engerr.New(engerr.InvalidArgs)
	}
	header, err := DecodeHeader(headerTerm, strict)
	if err != nil {
		return Entry{}, err
	}
	txsTerm, ok := fs["txs"]
	if !ok || txsTerm.Kind != codec.KindList {
		return Entry{}, engerr.New(engerr.InvalidArgs)
	}
	txs := make([]TXU, len(txsTerm.List))
	for i, item := range txsTerm.List {
		tx, err := DecodeTXU(item, strict)
		if err != nil {
			return Entry{}, err
		}
		txs[i] = tx
	}

	e := Entry{Hash: hash, Signature: sig, Header: header, Txs: txs}
	if maskBytes, has, err := optionalBinary(fs, "mask"); err != nil {
		return Entry{}, err
	} else if has {
		maskSize, err := requireUint64(fs, "mask_size")
		if err != nil {
			return Entry{}, err
		}
		maskSetSize, err := requireUint64(fs, "mask_set_size")
		if err != nil {
			return Entry{}, err
		}
		e.Mask = maskBytes
		e.MaskSize = maskSize
		e.MaskSetSize = maskSetSize
		e.HasMask = true
	}
	return e, nil
}

var entryDescriptorKnownKeys = map[string]bool{
	"entry_signer": true, "entry_prev_hash": true, "entry_slot": true,
	"entry_prev_slot": true, "entry_height": true, "entry_epoch": true,
	"entry_vr": true, "entry_vr_b3": true, "entry_dr": true,
}

// EncodeEntryDescriptor renders d into the §6 apply_entry wire shape
// (entry_signer, entry_prev_hash, entry_slot/prev_slot/height/epoch,
// entry_vr, entry_vr_b3, entry_dr).
func EncodeEntryDescriptor(d EntryDescriptor) codec.Term {
	return buildProplist([]field{
		{"entry_signer", codec.Binary(d.Signer)},
		{"entry_prev_hash", codec.Binary(d.PrevHash)},
		{"entry_slot", uintTerm(d.Slot)},
		{"entry_prev_slot", uintTerm(d.PrevSlot)},
		{"entry_height", uintTerm(d.Height)},
		{"entry_epoch", uintTerm(d.Epoch)},
		{"entry_vr", codec.Binary(d.VR)},
		{"entry_vr_b3", codec.Binary(d.VRBlake3)},
		{"entry_dr", codec.Binary(d.DR)},
	})
}

// DecodeEntryDescriptor parses t into an EntryDescriptor.
func DecodeEntryDescriptor(t codec.Term, strict bool) (EntryDescriptor, error) {
	fs, err := propFields(t)
	if err != nil {
		return EntryDescriptor{}, err
	}
	if err := checkKnownKeys(fs, entryDescriptorKnownKeys, strict); err != nil {
		return EntryDescriptor{}, err
	}
	signer, err := requireBinary(fs, "entry_signer")
	if err != nil {
		return EntryDescriptor{}, err
	}
	prevHash, err := requireBinary(fs, "entry_prev_hash")
	if err != nil {
		return EntryDescriptor{}, err
	}
	slot, err := requireUint64(fs, "entry_slot")
	if err != nil {
		return EntryDescriptor{}, err
	}
	prevSlot, err := requireUint64(fs, "entry_prev_slot")
	if err != nil {
		return EntryDescriptor{}, err
	}
	height, err := requireUint64(fs, "entry_height")
	if err != nil {
		return EntryDescriptor{}, err
	}
	epoch, err := requireUint64(fs, "entry_epoch")
	if err != nil {
		return EntryDescriptor{}, err
	}
	vr, _, err := optionalBinary(fs, "entry_vr")
	if err != nil {
		return EntryDescriptor{}, err
	}
	vrB3, _, err := optionalBinary(fs, "entry_vr_b3")
	if err != nil {
		return EntryDescriptor{}, err
	}
	dr, _, err := optionalBinary(fs, "entry_dr")
	if err != nil {
		return EntryDescriptor{}, err
	}
	return EntryDescriptor{
		Signer: signer, PrevHash: prevHash, Slot: slot, PrevSlot: prevSlot,
		Height: height, Epoch: epoch, VR: vr, VRBlake3: vrB3, DR: dr,
	}, nil
}

var applyBatchKnownKeys = map[string]bool{
	"entry": true, "txs": true,
}

// ApplyBatch is the full §6 apply_entry request payload: one
// EntryDescriptor plus its ordered transaction envelopes.
type ApplyBatch struct {
	Entry EntryDescriptor
	Txs   []TxEnvelope
}

// EncodeApplyBatch renders b into its wire proplist.
func EncodeApplyBatch(b ApplyBatch) codec.Term {
	txs := make([]codec.Term, len(b.Txs))
	for i, tx := range b.Txs {
		txs[i] = EncodeTxEnvelope(tx)
	}
	return buildProplist([]field{
		{"entry", EncodeEntryDescriptor(b.Entry)},
		{"txs", codec.List(txs...)},
	})
}

// DecodeApplyBatch parses t into an ApplyBatch.
func DecodeApplyBatch(t codec.Term, strict bool) (ApplyBatch, error) {
	fs, err := propFields(t)
	if err != nil {
		return ApplyBatch{}, err
	}
	if err := checkKnownKeys(fs, applyBatchKnownKeys, strict); err != nil {
		return ApplyBatch{}, err
	}
	entryTerm, ok := fs["entry"]
	if !ok {
		return ApplyBatch{}, engerr.New(engerr.InvalidArgs)
	}
	entry, err := DecodeEntryDescriptor(entryTerm, strict)
	if err != nil {
		return ApplyBatch{}, err
	}
	txsTerm, ok := fs["txs"]
	if !ok || txsTerm.Kind != codec.KindList {
		return ApplyBatch{}, engerr.New(engerr.InvalidArgs)
	}
	txs := make([]TxEnvelope, len(txsTerm.List))
	for i, item := range txsTerm.List {
		tx, err := DecodeTxEnvelope(item, strict)
		if err != nil {
			return ApplyBatch{}, err
		}
		txs[i] = tx
	}
	return ApplyBatch{Entry: entry, Txs: txs}, nil
}
