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

package kvstore

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/mutation"
)

func newTestFacade(t *testing.T) (*Facade, Txn) {
	t.Helper()
	eng := NewMemEngine()
	cf, err := eng.CF("contractstate")
	require.NoError(t, err)
	txn, err := eng.Begin()
	require.NoError(t, err)
	exec := NewBudget(1_000_000, engerr.ExecInsufficientExecBudget)
	storage := NewBudget(1_000_000, engerr.ExecInsufficientStorageBudget)
	return NewFacade(txn, cf, exec, storage), txn
}

func TestPutNewKeyChargesNewLeafAndJournals(t *testing.T) {
	f, _ := newTestFacade(t)

	require.NoError(t, f.Put([]byte("k"), []byte("v")))

	v, ok, err := f.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)

	require.Equal(t, 1, f.Forward.Len())
	require.Equal(t, mutation.Put, f.Forward.Items()[0].Kind)
	require.Equal(t, 1, f.Reverse.Len())
	require.Equal(t, mutation.Delete, f.Reverse.Items()[0].Kind)
}

func TestPutOverwriteJournalsReversePut(t *testing.T) {
	f, _ := newTestFacade(t)

	require.NoError(t, f.Put([]byte("k"), []byte("v1")))
	f.Forward.Reset()
	f.Reverse.Reset()

	require.NoError(t, f.Put([]byte("k"), []byte("v2-longer")))

	require.Equal(t, mutation.Put, f.Reverse.Items()[0].Kind)
	require.Equal(t, []byte("v1"), f.Reverse.Items()[0].Value)
}

func TestPutReadonlyAborts(t *testing.T) {
	f, _ := newTestFacade(t)
	f.SetReadonly(true)

	err := f.Put([]byte("k"), []byte("v"))
	require.True(t, engerr.Is(err, engerr.ExecCannotWriteDuringView))
}

func TestPutExhaustedExecBudgetAborts(t *testing.T) {
	eng := NewMemEngine()
	cf, _ := eng.CF("contractstate")
	txn, _ := eng.Begin()
	exec := NewBudget(1, engerr.ExecInsufficientExecBudget)
	storage := NewBudget(1_000_000, engerr.ExecInsufficientStorageBudget)
	f := NewFacade(txn, cf, exec, storage)

	err := f.Put([]byte("k"), []byte("v"))
	require.True(t, engerr.Is(err, engerr.ExecInsufficientExecBudget))
}

func TestDeleteIsIdempotentOnAbsentKey(t *testing.T) {
	f, _ := newTestFacade(t)
	require.NoError(t, f.Delete([]byte("missing")))
	require.Equal(t, 0, f.Forward.Len())
}

func TestDeleteExistingJournalsBothDirections(t *testing.T) {
	f, _ := newTestFacade(t)
	require.NoError(t, f.Put([]byte("k"), []byte("v")))
	f.Forward.Reset()
	f.Reverse.Reset()

	require.NoError(t, f.Delete([]byte("k")))
	_, ok, err := f.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, mutation.Delete, f.Forward.Items()[0].Kind)
	require.Equal(t, mutation.Put, f.Reverse.Items()[0].Kind)
	require.Equal(t, []byte("v"), f.Reverse.Items()[0].Value)
}

func TestIncrementFromAbsentStartsAtZero(t *testing.T) {
	f, _ := newTestFacade(t)
	got, err := f.Increment([]byte("bal"), big.NewInt(42))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(42), got)

	got, err = f.Increment([]byte("bal"), big.NewInt(-10))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(32), got)
}

func TestIncrementOverflowIsFatal(t *testing.T) {
	f, _ := newTestFacade(t)
	_, err := f.Increment([]byte("bal"), i128Max)
	require.NoError(t, err)

	_, err = f.Increment([]byte("bal"), big.NewInt(1))
	require.True(t, engerr.Is(err, engerr.ExecKVIncrementOverflow))
	require.True(t, engerr.Fatal(err))
}

func TestSetBitCreatesPageAndFlipsOnce(t *testing.T) {
	f, _ := newTestFacade(t)

	changed, err := f.SetBit([]byte("bloom"), 10)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = f.SetBit([]byte("bloom"), 10)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = f.SetBit([]byte("bloom"), 11)
	require.NoError(t, err)
	require.True(t, changed)
}

func TestGetNextAndGetPrevWalkSortedKeys(t *testing.T) {
	f, _ := newTestFacade(t)
	require.NoError(t, f.Put([]byte("a"), []byte("1")))
	require.NoError(t, f.Put([]byte("c"), []byte("3")))
	require.NoError(t, f.Put([]byte("e"), []byte("5")))

	k, v, ok, err := f.GetNext([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("c"), k)
	require.Equal(t, []byte("3"), v)

	k, v, ok, err = f.GetPrev([]byte("e"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("c"), k)
	require.Equal(t, []byte("3"), v)

	_, _, ok, err = f.GetNext([]byte("e"))
	require.NoError(t, err)
	require.False(t, ok)

	_, _, ok, err = f.GetPrev([]byte("a"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReplayUndoesEntireJournalBackToAbsent(t *testing.T) {
	f, txn := newTestFacade(t)
	require.NoError(t, f.Put([]byte("k"), []byte("v1")))
	require.NoError(t, f.Put([]byte("k"), []byte("v2")))
	require.NoError(t, f.Delete([]byte("k")))

	applier := &facadeApplier{txn: txn, cf: f.cf}
	require.NoError(t, mutation.Replay(f.Reverse, applier))

	_, ok, err := f.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok, "replaying the full reverse journal must restore the pre-entry (absent) state")
}

// facadeApplier replays mutation.Mutation values directly against a Txn,
// the same role the apply driver's own applier plays around a Facade.
type facadeApplier struct {
	txn Txn
	cf  CF
}

func (a *facadeApplier) Apply(m mutation.Mutation) error {
	switch m.Kind {
	case mutation.Put:
		return a.txn.Put(a.cf, m.Key, m.Value)
	case mutation.Delete:
		return a.txn.Delete(a.cf, m.Key)
	case mutation.SetBit, mutation.ClearBit:
		return nil
	default:
		return nil
	}
}
