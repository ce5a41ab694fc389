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

package sbat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amacore/engine/kvstore"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	eng := kvstore.NewMemEngine()
	cf, err := eng.CF("contractstate_tree")
	require.NoError(t, err)
	txn, err := eng.Begin()
	require.NoError(t, err)
	return NewTree(txn, cf, NewNodeCache(1024))
}

func TestInsertAndProveMembership(t *testing.T) {
	tr := newTestTree(t)

	ops := []Op{
		{Namespace: "account", Key: []byte("alice"), Value: []byte("100")},
		{Namespace: "account", Key: []byte("bob"), Value: []byte("200")},
		{Namespace: "account", Key: []byte("carol"), Value: []byte("300")},
	}
	_, err := tr.Update(ops, []string{"account"})
	require.NoError(t, err)
	nsRoot, err := tr.NamespaceRoot("account")
	require.NoError(t, err)

	proof, nonProof, err := tr.Prove("account", []byte("bob"))
	require.NoError(t, err)
	require.Nil(t, nonProof)
	require.NotNil(t, proof)
	require.Equal(t, []byte("200"), proof.Value)
	require.True(t, VerifyMembership(proof, nsRoot))
}

func TestProveNonMembership(t *testing.T) {
	tr := newTestTree(t)

	_, err := tr.Update([]Op{
		{Namespace: "account", Key: []byte("alice"), Value: []byte("100")},
	}, []string{"account"})
	require.NoError(t, err)

	nsRoot, err := tr.NamespaceRoot("account")
	require.NoError(t, err)

	proof, nonProof, err := tr.Prove("account", []byte("does-not-exist"))
	require.NoError(t, err)
	require.Nil(t, proof)
	require.NotNil(t, nonProof)
	require.True(t, VerifyNonMembership("account", []byte("does-not-exist"), nonProof, nsRoot))
}

func TestRootIndependentOfInsertOrder(t *testing.T) {
	keys := []Op{
		{Namespace: "coin", Key: []byte("AMA"), Value: []byte("1")},
		{Namespace: "coin", Key: []byte("BBB"), Value: []byte("2")},
		{Namespace: "coin", Key: []byte("CCC"), Value: []byte("3")},
		{Namespace: "coin", Key: []byte("DDD"), Value: []byte("4")},
	}

	forward := newTestTree(t)
	rootA, err := forward.Update(keys, []string{"coin"})
	require.NoError(t, err)

	reversed := make([]Op, len(keys))
	for i, op := range keys {
		reversed[len(keys)-1-i] = op
	}
	backward := newTestTree(t)
	rootB, err := backward.Update(reversed, []string{"coin"})
	require.NoError(t, err)

	require.Equal(t, rootA, rootB)
}

func TestDeleteAllInNamespaceReturnsToZeroHash(t *testing.T) {
	tr := newTestTree(t)

	_, err := tr.Update([]Op{
		{Namespace: "nft", Key: []byte("k1"), Value: []byte("v1")},
		{Namespace: "nft", Key: []byte("k2"), Value: []byte("v2")},
	}, []string{"nft"})
	require.NoError(t, err)

	_, err = tr.Update([]Op{
		{Namespace: "nft", Key: []byte("k1"), Delete: true},
		{Namespace: "nft", Key: []byte("k2"), Delete: true},
	}, []string{"nft"})
	require.NoError(t, err)

	ptr, err := tr.loadRootPointer("nft")
	require.NoError(t, err)
	require.Equal(t, ZeroHash, ptr.hash)
}

func TestParallelNamespacesFoldIntoFixedOrderRoot(t *testing.T) {
	tr := newTestTree(t)

	ops := []Op{
		{Namespace: "zeta", Key: []byte("z"), Value: []byte("1")},
		{Namespace: "alpha", Key: []byte("a"), Value: []byte("1")},
		{Namespace: "mid", Key: []byte("m"), Value: []byte("1")},
	}
	root1, err := tr.Update(ops, []string{"zeta", "alpha", "mid"})
	require.NoError(t, err)

	root2, err := tr.Root([]string{"mid", "zeta", "alpha"})
	require.NoError(t, err)

	require.Equal(t, root1, root2, "Root must fold namespaces in a fixed name order regardless of caller-supplied order")
}

func TestIncrementalUpdatesMatchSingleBatch(t *testing.T) {
	keys := [][]byte{[]byte("k1"), []byte("k2"), []byte("k3"), []byte("k4"), []byte("k5")}

	incremental := newTestTree(t)
	for _, k := range keys {
		_, err := incremental.Update([]Op{{Namespace: "account", Key: k, Value: k}}, []string{"account"})
		require.NoError(t, err)
	}

	batch := newTestTree(t)
	ops := make([]Op, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, Op{Namespace: "account", Key: k, Value: k})
	}
	_, err := batch.Update(ops, []string{"account"})
	require.NoError(t, err)

	rootA, err := incremental.NamespaceRoot("account")
	require.NoError(t, err)
	rootB, err := batch.NamespaceRoot("account")
	require.NoError(t, err)
	require.Equal(t, rootA, rootB)

	for _, k := range keys {
		proof, nonProof, err := incremental.Prove("account", k)
		require.NoError(t, err)
		require.Nil(t, nonProof, "key %s must remain reachable after incremental inserts", k)
		require.True(t, VerifyMembership(proof, rootA))
	}
}

func TestDeleteCollapsesToLeafSibling(t *testing.T) {
	tr := newTestTree(t)
	_, err := tr.Update([]Op{
		{Namespace: "account", Key: []byte("keep"), Value: []byte("1")},
		{Namespace: "account", Key: []byte("gone"), Value: []byte("2")},
	}, []string{"account"})
	require.NoError(t, err)

	_, err = tr.Update([]Op{{Namespace: "account", Key: []byte("gone"), Delete: true}}, []string{"account"})
	require.NoError(t, err)

	solo := newTestTree(t)
	_, err = solo.Update([]Op{{Namespace: "account", Key: []byte("keep"), Value: []byte("1")}}, []string{"account"})
	require.NoError(t, err)

	rootA, err := tr.NamespaceRoot("account")
	require.NoError(t, err)
	rootB, err := solo.NamespaceRoot("account")
	require.NoError(t, err)
	require.Equal(t, rootA, rootB, "deleting one of two leaves must collapse to the surviving leaf's commitment")
}

func TestUpdateOverwritesExistingKey(t *testing.T) {
	tr := newTestTree(t)

	_, err := tr.Update([]Op{{Namespace: "account", Key: []byte("alice"), Value: []byte("100")}}, []string{"account"})
	require.NoError(t, err)

	_, err = tr.Update([]Op{{Namespace: "account", Key: []byte("alice"), Value: []byte("999")}}, []string{"account"})
	require.NoError(t, err)

	proof, _, err := tr.Prove("account", []byte("alice"))
	require.NoError(t, err)
	require.Equal(t, []byte("999"), proof.Value)
}
