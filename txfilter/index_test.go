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

package txfilter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amacore/engine/model"
)

func sampleTXU() model.TXU {
	return model.TXU{
		Hash: []byte("txhash-0123456789abcdef"),
		TX: model.TX{
			Signer: []byte("signer-pubkey"),
			Nonce:  42,
			Action: model.Action{
				Contract: []byte("Coin"),
				Function: "transfer",
				Args:     [][]byte{[]byte("receiver-pubkey"), []byte("100")},
			},
		},
	}
}

func TestBuildTxHashFiltersProducesEightDistinctKeys(t *testing.T) {
	keys := BuildTxHashFilters(sampleTXU())
	require.Len(t, keys, 8)

	seen := map[[KeySize]byte]bool{}
	for _, k := range keys {
		seen[k.Key] = true
		require.Equal(t, []byte("txhash-0123456789abcdef"), k.TxHash)
		require.Equal(t, byte(':'), k.Key[HashPrefixSize])
	}
	require.Len(t, seen, 8)
}

func TestPaddedNonceIsZeroFilledTwentyDigits(t *testing.T) {
	n := paddedNonce(42)
	require.Equal(t, "00000000000000000042", string(n[:]))
}

func TestPaddedNonceHandlesMaxUint64(t *testing.T) {
	n := paddedNonce(^uint64(0))
	require.Equal(t, "18446744073709551615", string(n[:]))
}

func TestBuildTxHashFiltersDeterministic(t *testing.T) {
	txu := sampleTXU()
	a := BuildTxHashFilters(txu)
	b := BuildTxHashFilters(txu)
	require.Equal(t, a, b)
}

func TestBuildBatchConcatenatesPerTx(t *testing.T) {
	txus := []model.TXU{sampleTXU(), sampleTXU()}
	keys := BuildBatch(txus)
	require.Len(t, keys, 16)
}

func TestKeySizeMatchesRealShapeNotSeventeenBytes(t *testing.T) {
	require.Equal(t, 37, KeySize)
}
