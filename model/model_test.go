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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amacore/engine/codec"
)

func pk(b byte) []byte {
	return bytes.Repeat([]byte{b}, 48)
}

func sig(b byte) []byte {
	return bytes.Repeat([]byte{b}, 96)
}

func h32(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func sampleTX() TX {
	return TX{
		Signer: pk(1),
		Nonce:  7,
		Action: Action{
			Op:             "call",
			Contract:       []byte("Coin"),
			Function:       "transfer",
			Args:           [][]byte{[]byte("receiver"), []byte("100")},
			AttachedSymbol: "AMA",
			AttachedAmount: "1",
			HasAttachment:  true,
		},
	}
}

func TestActionRoundTrip(t *testing.T) {
	a := sampleTX().Action
	t1 := EncodeAction(a)
	b := codec.Encode(t1)

	decoded, err := codec.Decode(b)
	require.NoError(t, err)

	got, err := DecodeAction(decoded, true)
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestTXRoundTrip(t *testing.T) {
	tx := sampleTX()
	b := codec.Encode(EncodeTX(tx))

	decoded, err := codec.Decode(b)
	require.NoError(t, err)
	got, err := DecodeTX(decoded, true)
	require.NoError(t, err)
	require.Equal(t, tx, got)
}

func TestTXURoundTrip(t *testing.T) {
	u := TXU{Hash: h32(9), Signature: sig(2), TX: sampleTX()}
	b := codec.Encode(EncodeTXU(u))

	decoded, err := codec.Decode(b)
	require.NoError(t, err)
	got, err := DecodeTXU(decoded, true)
	require.NoError(t, err)
	require.Equal(t, u, got)
	require.NoError(t, got.Validate())
}

func TestEntryRoundTripWithMask(t *testing.T) {
	e := Entry{
		Hash:      h32(3),
		Signature: sig(4),
		Header: Header{
			PrevHash: h32(5), Height: 100, Slot: 200, PrevSlot: 199,
			Signer: pk(6), DR: h32(7), VR: bytes.Repeat([]byte{8}, 96),
			RootTx: h32(9), RootValidator: h32(10),
		},
		Txs:         []TXU{{Hash: h32(11), Signature: sig(12), TX: sampleTX()}},
		HasMask:     true,
		Mask:        []byte{0xff, 0x01},
		MaskSize:    16,
		MaskSetSize: 9,
	}
	require.NoError(t, e.Validate())

	b := codec.Encode(EncodeEntry(e))
	decoded, err := codec.Decode(b)
	require.NoError(t, err)
	got, err := DecodeEntry(decoded, true)
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestStrictDecodeRejectsUnknownKey(t *testing.T) {
	tx := EncodeTX(sampleTX())
	pairs := append([]codec.Pair{}, tx.Map...)
	pairs = append(pairs, codec.Pair{Key: codec.Binary([]byte("zzz_unknown")), Value: codec.Int64(1)})
	withExtra := codec.Proplist(pairs...)

	_, err := DecodeTX(withExtra, true)
	require.Error(t, err)

	_, err = DecodeTX(withExtra, false)
	require.NoError(t, err)
}

func TestTXValidateRejectsBadPubkeyLength(t *testing.T) {
	tx := sampleTX()
	tx.Signer = pk(1)[:47]
	require.Error(t, tx.Validate())
}

func TestIsContractRouteDistinguishesPubkeyFromSymbolicName(t *testing.T) {
	vmTX := sampleTX()
	vmTX.Action.Contract = pk(9)
	require.True(t, vmTX.IsContractRoute())

	bicTX := sampleTX()
	bicTX.Action.Contract = []byte("Coin")
	require.False(t, bicTX.IsContractRoute())
}

func TestEntryDescriptorValidate(t *testing.T) {
	d := EntryDescriptor{
		Signer: pk(1), PrevHash: h32(2), Slot: 1, PrevSlot: 0, Height: 1, Epoch: 0,
		VR: bytes.Repeat([]byte{3}, 96), VRBlake3: h32(4), DR: h32(5),
	}
	require.NoError(t, d.Validate())

	bad := d
	bad.Signer = pk(1)[:10]
	require.Error(t, bad.Validate())
}
