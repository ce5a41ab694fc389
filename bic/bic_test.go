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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/kvstore"
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

func newTestEnv(t *testing.T, caller []byte) *Env {
	t.Helper()
	eng := kvstore.NewMemEngine()
	cf, err := eng.CF("contractstate")
	require.NoError(t, err)
	txn, err := eng.Begin()
	require.NoError(t, err)
	exec := kvstore.NewBudget(1_000_000_000, engerr.ExecInsufficientExecBudget)
	storage := kvstore.NewBudget(1_000_000_000, engerr.ExecInsufficientStorageBudget)
	fac := kvstore.NewFacade(txn, cf, exec, storage)
	return NewEnv(fac, &CallerEnv{AccountCaller: caller, EntryHeight: 1, EntryEpoch: 1}, prng.New(1))
}

func TestCoinCreateAndMintTransferRoundTrip(t *testing.T) {
	alice := pk(1)
	bob := pk(2)
	env := newTestEnv(t, alice)
	coin := NewCoin(env)

	require.NoError(t, coin.CreateAndMint([][]byte{[]byte("GOLD"), []byte("1000"), []byte("9"), []byte("true")}))

	bal, err := coin.Balance(alice, []byte("GOLD"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1000), bal)

	require.NoError(t, coin.Transfer([][]byte{bob, []byte("400"), []byte("GOLD")}))

	aliceBal, err := coin.Balance(alice, []byte("GOLD"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(600), aliceBal)

	bobBal, err := coin.Balance(bob, []byte("GOLD"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(400), bobBal)
}

func TestCoinTransferInsufficientFunds(t *testing.T) {
	alice := pk(1)
	bob := pk(2)
	env := newTestEnv(t, alice)
	coin := NewCoin(env)
	require.NoError(t, coin.CreateAndMint([][]byte{[]byte("GOLD"), []byte("10")}))

	err := coin.Transfer([][]byte{bob, []byte("11"), []byte("GOLD")})
	require.True(t, engerr.Is(err, engerr.InsufficientFunds))
}

func TestCoinCreateAndMintRejectsReservedSymbol(t *testing.T) {
	alice := pk(1)
	env := newTestEnv(t, alice)
	coin := NewCoin(env)
	err := coin.CreateAndMint([][]byte{[]byte("BTC"), []byte("10")})
	require.True(t, engerr.Is(err, engerr.SymbolReserved))
}

func TestCoinMintRequiresPermission(t *testing.T) {
	alice := pk(1)
	mallory := pk(3)
	env := newTestEnv(t, alice)
	coin := NewCoin(env)
	require.NoError(t, coin.CreateAndMint([][]byte{[]byte("GOLD"), []byte("10"), []byte("9"), []byte("true")}))

	mEnv := newTestEnv(t, mallory)
	mEnv.KV = env.KV
	mCoin := NewCoin(mEnv)
	err := mCoin.CallMint([][]byte{alice, []byte("5"), []byte("GOLD")})
	require.Error(t, err)
}

func TestCoinPauseBlocksTransfer(t *testing.T) {
	alice := pk(1)
	bob := pk(2)
	env := newTestEnv(t, alice)
	coin := NewCoin(env)
	require.NoError(t, coin.CreateAndMint([][]byte{[]byte("GOLD"), []byte("10"), []byte("9"), []byte("false"), []byte("true")}))
	require.NoError(t, coin.Pause([][]byte{[]byte("GOLD"), []byte("true")}))

	err := coin.Transfer([][]byte{bob, []byte("1"), []byte("GOLD")})
	require.True(t, engerr.Is(err, engerr.Paused))
}

func TestNftCreateCollectionAndMint(t *testing.T) {
	alice := pk(1)
	bob := pk(2)
	env := newTestEnv(t, alice)
	nft := NewNft(env)

	require.NoError(t, nft.CreateCollection([][]byte{[]byte("Apes")}))
	require.NoError(t, nft.CallMint([][]byte{bob, []byte("3"), []byte("Apes"), []byte("42")}))

	bal, err := nft.Balance(bob, []byte("Apes"), []byte("42"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(3), bal)
}

func TestNftSoulboundBlocksTransfer(t *testing.T) {
	alice := pk(1)
	bob := pk(2)
	env := newTestEnv(t, alice)
	nft := NewNft(env)
	require.NoError(t, nft.CreateCollection([][]byte{[]byte("Apes"), []byte("true")}))
	require.NoError(t, nft.CallMint([][]byte{alice, []byte("1"), []byte("Apes"), []byte("1")}))

	err := nft.Transfer([][]byte{bob, []byte("1"), []byte("Apes"), []byte("1")})
	require.True(t, engerr.Is(err, engerr.Soulbound))
}

func TestContractDeployAndBytecode(t *testing.T) {
	alice := pk(1)
	env := newTestEnv(t, alice)
	c := NewContract(env)
	require.NoError(t, c.Deploy([][]byte{[]byte("\x00asm...")}))

	got, ok, err := c.Bytecode(alice)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("\x00asm..."), got)
}

func TestLockupCreateAndUnlock(t *testing.T) {
	alice := pk(1)
	env := newTestEnv(t, alice)
	lockup := NewLockup(env)
	coin := NewCoin(env)
	require.NoError(t, coin.CreateAndMint([][]byte{[]byte("GOLD"), []byte("100")}))

	require.NoError(t, lockup.CreateLock(alice, []byte("GOLD"), big.NewInt(50), 5))

	env.Caller.EntryEpoch = 3
	err := lockup.Unlock([][]byte{[]byte("1")})
	require.True(t, engerr.Is(err, "vault_is_locked"))

	env.Caller.EntryEpoch = 10
	require.NoError(t, lockup.Unlock([][]byte{[]byte("1")}))

	bal, err := coin.Balance(alice, []byte("GOLD"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(150), bal)
}

func seedNativeBalance(t *testing.T, env *Env, account []byte, amount *big.Int) {
	t.Helper()
	_, err := env.KV.Increment(coinBalanceKey(account, []byte("AMA")), amount)
	require.NoError(t, err)
}

func TestLockupPrimeLockEarlyUnlockPenalty(t *testing.T) {
	alice := pk(1)
	env := newTestEnv(t, alice)
	coin := NewCoin(env)
	seedNativeBalance(t, env, alice, big.NewInt(1_000_000_000_000))

	lp := NewLockupPrime(env)
	require.NoError(t, lp.Lock([][]byte{[]byte("2000000000"), []byte("30d")}))

	env.Caller.EntryEpoch = 1
	require.NoError(t, lp.Unlock([][]byte{[]byte("1")}))

	treasuryBal, err := coin.Balance(TreasuryDonationAddress, []byte("AMA"))
	require.NoError(t, err)
	require.True(t, treasuryBal.Sign() > 0)
}

func TestLockupPrimeLockAndUnlockOnTimeMintsPrime(t *testing.T) {
	alice := pk(1)
	env := newTestEnv(t, alice)
	coin := NewCoin(env)
	seedNativeBalance(t, env, alice, big.NewInt(1_000_000_000_000))

	lp := NewLockupPrime(env)
	require.NoError(t, lp.Lock([][]byte{[]byte("2000000000"), []byte("magic")}))

	require.NoError(t, lp.Unlock([][]byte{[]byte("1")}))

	primeBal, err := coin.Balance(alice, []byte("PRIME"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2000000000), primeBal)
}

func TestEpochSetEmissionAddressAndSlash(t *testing.T) {
	alice := pk(1)
	bob := pk(2)
	env := newTestEnv(t, alice)
	epoch := NewEpoch(env)

	require.NoError(t, epoch.SetEmissionAddress([][]byte{bob}))
	addr, err := epoch.emissionAddress(alice)
	require.NoError(t, err)
	require.Equal(t, bob, addr)

	require.NoError(t, epoch.SlashTrainer([][]byte{alice}))
	addr, err = epoch.emissionAddress(alice)
	require.NoError(t, err)
	require.Equal(t, alice, addr)
}

func TestVerifyHashDiffZeroBitsAlwaysPasses(t *testing.T) {
	var h [32]byte
	require.True(t, VerifyHashDiff(h, 0))
}

func TestVerifyHashDiffRejectsSetLeadingBits(t *testing.T) {
	var h [32]byte
	h[0] = 0x01
	require.False(t, VerifyHashDiff(h, 8))
	require.True(t, VerifyHashDiff(h, 7))
}

func TestUnpackRoundTripsFieldOffsets(t *testing.T) {
	sol := make([]byte, SolSize)
	sol[0] = 7
	for i := range sol[4:36] {
		sol[4+i] = 0xAB
	}
	s, ok := Unpack(sol)
	require.True(t, ok)
	require.Equal(t, uint64(7), s.Epoch)
	require.Equal(t, byte(0xAB), s.SegmentVRHash[0])
}

func TestFreivaldsAcceptsConsistentMatrices(t *testing.T) {
	sol := make([]byte, SolSize)
	for i := range sol {
		sol[i] = byte(i)
	}
	a, b := freivaldsMatrices(sol)
	c := matVecMulMatrixProduct(a, b)
	copy(sol[SolPreambleSize:SolPreambleSize+SolMatrixSize], flattenMatrix(c))

	rng := prng.New(42)
	require.True(t, freivalds(sol, rng))
}

func TestFreivaldsRejectsInconsistentMatrix(t *testing.T) {
	sol := make([]byte, SolSize)
	for i := range sol {
		sol[i] = byte(i)
	}
	rng := prng.New(42)
	require.False(t, freivalds(sol, rng))
}

func matVecMulMatrixProduct(a, b [freivaldsDim][freivaldsDim]byte) [freivaldsDim][freivaldsDim]byte {
	var c [freivaldsDim][freivaldsDim]byte
	for i := 0; i < freivaldsDim; i++ {
		for j := 0; j < freivaldsDim; j++ {
			var sum byte
			for k := 0; k < freivaldsDim; k++ {
				sum += a[i][k] * b[k][j]
			}
			c[i][j] = sum
		}
	}
	return c
}

func flattenMatrix(m [freivaldsDim][freivaldsDim]byte) []byte {
	out := make([]byte, 0, freivaldsDim*freivaldsDim)
	for i := 0; i < freivaldsDim; i++ {
		out = append(out, m[i][:]...)
	}
	return out
}

func TestIsSymbolFreeRejectsReservedAndAMAPrefix(t *testing.T) {
	require.False(t, isSymbolFree([]byte("BTC")))
	require.False(t, isSymbolFree([]byte("AMAGOLD")))
	require.True(t, isSymbolFree([]byte("ZZZNEWCOIN")))
}

func TestDispatchCallRoutesToHandler(t *testing.T) {
	alice := pk(1)
	bob := pk(2)
	env := newTestEnv(t, alice)
	require.True(t, ValidAction("Coin", "transfer"))
	require.False(t, ValidAction("Coin", "nonexistent"))

	coin := NewCoin(env)
	require.NoError(t, coin.CreateAndMint([][]byte{[]byte("GOLD"), []byte("10")}))
	require.NoError(t, Call(env, "Coin", "transfer", [][]byte{bob, []byte("1"), []byte("GOLD")}))

	err := Call(env, "Bogus", "nope", nil)
	require.True(t, engerr.Is(err, "invalid_bic_action"))
}

func TestEncodeDecodeBinaryListContains(t *testing.T) {
	a := pk(1)
	b := pk(2)
	enc := encodeBinaryList([][]byte{a, b})

	ok, err := decodeBinaryListContains(enc, a)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = decodeBinaryListContains(enc, pk(9))
	require.NoError(t, err)
	require.False(t, ok)
}
