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

package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV map[string][]byte

func (m memKV) k(table string, key []byte) string { return table + "\x00" + string(key) }

func (m memKV) Apply(mut Mutation) error {
	key := m.k(mut.Table, mut.Key)
	switch mut.Kind {
	case Put:
		m[key] = append([]byte(nil), mut.Value...)
	case Delete:
		delete(m, key)
	}
	return nil
}

func TestReplayUndoesForward(t *testing.T) {
	store := memKV{}
	store.Apply(NewPut("t", []byte("a"), []byte("1")))

	fwd := NewJournal()
	rev := NewJournal()

	// overwrite a: 1 -> 2
	rev.Append(NewPut("t", []byte("a"), []byte("1")))
	fwd.Append(NewPut("t", []byte("a"), []byte("2")))
	store.Apply(NewPut("t", []byte("a"), []byte("2")))

	// new key b appears
	rev.Append(NewDelete("t", []byte("b")))
	fwd.Append(NewPut("t", []byte("b"), []byte("x")))
	store.Apply(NewPut("t", []byte("b"), []byte("x")))

	require.Equal(t, []byte("2"), store["t\x00a"])
	require.Equal(t, []byte("x"), store["t\x00b"])

	require.NoError(t, Replay(rev, store))

	assert.Equal(t, []byte("1"), store["t\x00a"])
	_, ok := store["t\x00b"]
	assert.False(t, ok)
}

func TestDedupForwardKeepsLast(t *testing.T) {
	j := NewJournal()
	j.Append(NewPut("t", []byte("a"), []byte("1")))
	j.Append(NewPut("t", []byte("b"), []byte("x")))
	j.Append(NewPut("t", []byte("a"), []byte("2")))
	j.Append(NewPut("t", []byte("a"), []byte("3")))

	d := Dedup(j, true)
	items := d.Items()
	require.Len(t, items, 2)
	assert.Equal(t, []byte("b"), items[0].Key)
	assert.Equal(t, []byte("x"), items[0].Value)
	assert.Equal(t, []byte("a"), items[1].Key)
	assert.Equal(t, []byte("3"), items[1].Value)
}

func TestDedupReverseKeepsFirst(t *testing.T) {
	j := NewJournal()
	j.Append(NewPut("t", []byte("a"), []byte("orig")))
	j.Append(NewDelete("t", []byte("b")))
	j.Append(NewPut("t", []byte("a"), []byte("mid")))

	d := Dedup(j, false)
	items := d.Items()
	require.Len(t, items, 2)
	assert.Equal(t, []byte("a"), items[0].Key)
	assert.Equal(t, []byte("orig"), items[0].Value)
	assert.Equal(t, []byte("b"), items[1].Key)
}
