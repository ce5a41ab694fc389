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

func TestRetargetBitsWithinToleranceHoldsSteady(t *testing.T) {
	require.Equal(t, uint64(40), RetargetBits(40, RetargetInput{Solutions: params.SolutionsPerEpoch}))
	require.Equal(t, uint64(40), RetargetBits(40, RetargetInput{Solutions: params.SolutionsPerEpoch + 10}))
}

func TestRetargetBitsZeroSolutionsDropsThree(t *testing.T) {
	require.Equal(t, uint64(37), RetargetBits(40, RetargetInput{Solutions: 0}))
}

func TestRetargetBitsZeroSolutionsClampsAtFloor(t *testing.T) {
	require.Equal(t, uint64(params.MinDifficultyBits), RetargetBits(params.MinDifficultyBits+1, RetargetInput{Solutions: 0}))
}

func TestRetargetBitsAboveUpperToleranceIncreases(t *testing.T) {
	// 4x target: ceil(log2(4)) = 2, /UpSlowdown(2) -> step 1, clamped to MaxBitsUpStep.
	got := RetargetBits(40, RetargetInput{Solutions: 4 * params.SolutionsPerEpoch})
	require.Greater(t, got, uint64(40))
	require.LessOrEqual(t, got, uint64(40+params.MaxBitsUpStep))
}

func TestRetargetBitsBelowLowerToleranceDecreases(t *testing.T) {
	got := RetargetBits(40, RetargetInput{Solutions: params.SolutionsPerEpoch / 4})
	require.Less(t, got, uint64(40))
	require.GreaterOrEqual(t, got, uint64(40-params.MaxBitsDownStep))
}

func TestRetargetBitsClampsToMaxUpStep(t *testing.T) {
	// An enormous solution surplus must still only move bits by MaxBitsUpStep.
	got := RetargetBits(40, RetargetInput{Solutions: 1 << 40})
	require.Equal(t, uint64(40+params.MaxBitsUpStep), got)
}

func TestRetargetBitsClampsToCeiling(t *testing.T) {
	got := RetargetBits(params.MaxDifficultyBits-1, RetargetInput{Solutions: 1 << 40})
	require.Equal(t, uint64(params.MaxDifficultyBits), got)
}
