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

package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amacore/engine/params"
)

type fakeStore map[string][]byte

func (f fakeStore) Get(key []byte) ([]byte, bool, error) {
	v, ok := f[string(key)]
	return v, ok, nil
}

func (f fakeStore) Put(key, value []byte) error {
	f[string(key)] = append([]byte(nil), value...)
	return nil
}

func TestDifficultyBitsDefaultsToFloor(t *testing.T) {
	store := fakeStore{}
	bits, err := DifficultyBits(store)
	require.NoError(t, err)
	require.Equal(t, uint64(params.MinDifficultyBits), bits)
}

func TestRecordSolutionIncrements(t *testing.T) {
	store := fakeStore{}
	require.NoError(t, RecordSolution(store))
	require.NoError(t, RecordSolution(store))

	n, err := SolutionsCount(store)
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
}

func TestSegmentBoundaryEveryThousandHeights(t *testing.T) {
	require.True(t, IsSegmentBoundary(0))
	require.True(t, IsSegmentBoundary(1000))
	require.True(t, IsSegmentBoundary(2000))
	require.False(t, IsSegmentBoundary(1))
	require.False(t, IsSegmentBoundary(1999))
}

func TestEpochRotationAtExactRemainder(t *testing.T) {
	require.True(t, IsEpochRotation(99_999))
	require.True(t, IsEpochRotation(199_999))
	require.False(t, IsEpochRotation(100_000))
	require.False(t, IsEpochRotation(0))
}

func TestSnapshotSegmentVRRoundTrips(t *testing.T) {
	store := fakeStore{}
	vr := []byte{1, 2, 3, 4}
	require.NoError(t, SnapshotSegmentVR(store, vr))

	got, err := SegmentVRHash(store)
	require.NoError(t, err)
	require.Equal(t, vr, got)
}

func TestRotateRetargetsAndResetsCounter(t *testing.T) {
	store := fakeStore{}
	require.NoError(t, store.Put([]byte(KeyDifficultyBits), []byte("40")))
	require.NoError(t, store.Put([]byte(KeySolutionsCount), []byte("0")))

	next, err := Rotate(store)
	require.NoError(t, err)
	require.Equal(t, uint64(37), next) // zero solutions this epoch -> -3 bits

	bits, err := DifficultyBits(store)
	require.NoError(t, err)
	require.Equal(t, next, bits)

	sols, err := SolutionsCount(store)
	require.NoError(t, err)
	require.Equal(t, uint64(0), sols)
}

func TestReseedSeedIsDeterministicBlake3(t *testing.T) {
	a := ReseedSeed([]byte("vr-value"))
	b := ReseedSeed([]byte("vr-value"))
	require.Equal(t, a, b)

	c := ReseedSeed([]byte("different-vr"))
	require.NotEqual(t, a, c)
}
