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

package apply

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/kvstore"
	"github.com/amacore/engine/model"
	"github.com/amacore/engine/params"
	"github.com/amacore/engine/prng"
)

func pk(b byte) []byte {
	p := make([]byte, params.PubkeySize)
	for i := range p {
		p[i] = b
	}
	return p
}

func h32(b byte) []byte {
	h := make([]byte, params.HashSize)
	for i := range h {
		h[i] = b
	}
	return h
}

func vr96() []byte { return make([]byte, 96) }

func baseDescriptor(height uint64) model.EntryDescriptor {
	return model.EntryDescriptor{
		Signer:   pk(0xaa),
		PrevHash: h32(0x01),
		Slot:     height,
		PrevSlot: height - 1,
		Height:   height,
		Epoch:    0,
		VR:       vr96(),
		VRBlake3: h32(0x02),
		DR:       h32(0x03),
	}
}

func coinTx(signer []byte, nonce uint64, contract, function string, args [][]byte, cost string) model.TxEnvelope {
	return model.TxEnvelope{
		Hash: h32(byte(nonce + 1)),
		TX: model.TX{
			Signer: signer,
			Nonce:  nonce,
			Action: model.Action{
				Op:       "call",
				Contract: []byte(contract),
				Function: function,
				Args:     args,
			},
		},
		TxCost: cost,
	}
}

func readBalance(t *testing.T, eng kvstore.Engine, cf kvstore.CF, addr []byte, symbol string) string {
	t.Helper()
	txn, err := eng.Begin()
	require.NoError(t, err)
	defer txn.Discard()
	key := append(append(append([]byte("account:"), addr...), []byte(":balance:")...), []byte(symbol)...)
	v, err := txn.Get(cf, key)
	if err == kvstore.ErrNotFound {
		return "0"
	}
	require.NoError(t, err)
	return string(v)
}

func readRaw(t *testing.T, eng kvstore.Engine, cf kvstore.CF, key []byte) (string, bool) {
	t.Helper()
	txn, err := eng.Begin()
	require.NoError(t, err)
	defer txn.Discard()
	v, err := txn.Get(cf, key)
	if err == kvstore.ErrNotFound {
		return "", false
	}
	require.NoError(t, err)
	return string(v), true
}

// TestApplyEntryCoinLifecycleScenarios walks §8's three concrete
// Coin scenarios through the real apply_entry pipeline: create_and_mint,
// a plain transfer, and a transfer to the burn address.
func TestApplyEntryCoinLifecycleScenarios(t *testing.T) {
	eng := kvstore.NewMemEngine()
	stateCF, err := eng.CF(contractstateCF)
	require.NoError(t, err)

	ca := pk(0x10)
	cb := pk(0x20)

	txn, err := eng.Begin()
	require.NoError(t, err)

	desc := baseDescriptor(1)
	txs := []model.TxEnvelope{
		coinTx(ca, 0, "Coin", "create_and_mint",
			[][]byte{[]byte("USDFAKE"), []byte("1000000000000000000"), []byte("9"), []byte("false"), []byte("false"), []byte("false")}, "0"),
		coinTx(ca, 1, "Coin", "transfer", [][]byte{cb, []byte("100"), []byte("USDFAKE")}, "0"),
		coinTx(cb, 0, "Coin", "transfer", [][]byte{params.BurnAddress, []byte("50"), []byte("USDFAKE")}, "0"),
	}

	result, err := ApplyEntry(context.Background(), eng, txn, desc, txs, prng.New(1))
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	require.Len(t, result.Receipts, 3)
	for i, r := range result.Receipts {
		require.Equal(t, engerr.OK, r.Error, "tx %d", i)
	}

	require.Equal(t, "999999999999999900", readBalance(t, eng, stateCF, ca, "USDFAKE"))
	require.Equal(t, "50", readBalance(t, eng, stateCF, cb, "USDFAKE"))
	require.Equal(t, "50", readBalance(t, eng, stateCF, params.BurnAddress, "USDFAKE"))

	supply, ok := readRaw(t, eng, stateCF, []byte("coin:USDFAKE:totalSupply"))
	require.True(t, ok)
	require.Equal(t, "999999999999999950", supply)
}

// TestApplyEntryFailedTxStillChargesNonceAndFee covers §8's "nonce+fee
// commitment" property: a BIC abort must still bump the signer's nonce
// and split tx_cost between the entry signer and the burn address,
// while leaving no other trace of the failed transaction's effect.
func TestApplyEntryFailedTxStillChargesNonceAndFee(t *testing.T) {
	eng := kvstore.NewMemEngine()
	stateCF, err := eng.CF(contractstateCF)
	require.NoError(t, err)

	signer := pk(0x30)
	txn, err := eng.Begin()
	require.NoError(t, err)

	desc := baseDescriptor(1)
	txs := []model.TxEnvelope{
		coinTx(signer, 5, "Coin", "transfer", [][]byte{pk(0x99), []byte("1"), []byte("USDFAKE")}, "1000"),
	}

	result, err := ApplyEntry(context.Background(), eng, txn, desc, txs, prng.New(1))
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	require.Len(t, result.Receipts, 1)
	require.Equal(t, engerr.InsufficientFunds, result.Receipts[0].Error)

	nonceKeyBytes := append(append([]byte("account:"), signer...), []byte(":attribute:nonce")...)
	nonceVal, ok := readRaw(t, eng, stateCF, nonceKeyBytes)
	require.True(t, ok)
	require.Equal(t, "6", nonceVal)

	require.Equal(t, "-1000", readBalance(t, eng, stateCF, signer, params.NativeSymbol))
	require.Equal(t, "500", readBalance(t, eng, stateCF, desc.Signer, params.NativeSymbol))
	require.Equal(t, "500", readBalance(t, eng, stateCF, params.BurnAddress, params.NativeSymbol))
}

// TestApplyEntryOrderedReceiptsWithTrailingFailure covers §8 scenario 6:
// receipts stay in input order across a mix of successes and a trailing
// failure, and the failing tx leaves no balance trace beyond its
// upfront nonce/fee charge.
func TestApplyEntryOrderedReceiptsWithTrailingFailure(t *testing.T) {
	eng := kvstore.NewMemEngine()
	stateCF, err := eng.CF(contractstateCF)
	require.NoError(t, err)

	ca := pk(0x40)
	cb := pk(0x50)
	txn, err := eng.Begin()
	require.NoError(t, err)

	desc := baseDescriptor(1)
	txs := []model.TxEnvelope{
		coinTx(ca, 0, "Coin", "create_and_mint", [][]byte{[]byte("ZOG"), []byte("500")}, "0"),
		coinTx(ca, 1, "Coin", "transfer", [][]byte{cb, []byte("10"), []byte("ZOG")}, "0"),
		coinTx(cb, 0, "Coin", "transfer", [][]byte{ca, []byte("99999"), []byte("ZOG")}, "0"),
	}

	result, err := ApplyEntry(context.Background(), eng, txn, desc, txs, prng.New(1))
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	require.Len(t, result.Receipts, 3)
	require.Equal(t, engerr.OK, result.Receipts[0].Error)
	require.Equal(t, engerr.OK, result.Receipts[1].Error)
	require.Equal(t, engerr.InsufficientFunds, result.Receipts[2].Error)

	require.Equal(t, "10", readBalance(t, eng, stateCF, cb, "ZOG"))
	require.Equal(t, "490", readBalance(t, eng, stateCF, ca, "ZOG"))
}

func TestApplyEntryRejectsBadEntryDescriptor(t *testing.T) {
	eng := kvstore.NewMemEngine()
	txn, err := eng.Begin()
	require.NoError(t, err)
	defer txn.Discard()

	bad := baseDescriptor(1)
	bad.Signer = bad.Signer[:10]

	_, err = ApplyEntry(context.Background(), eng, txn, bad, nil, prng.New(1))
	require.Error(t, err)
}
