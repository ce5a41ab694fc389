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

import "github.com/rcrowley/go-metrics"

var (
	txSuccessCounter  = metrics.NewRegisteredCounter("apply/tx/success", nil)
	txFailureCounter  = metrics.NewRegisteredCounter("apply/tx/failure", nil)
	execBudgetCounter = metrics.NewRegisteredCounter("apply/budget/exec", nil)
	storageBudgetCounter = metrics.NewRegisteredCounter("apply/budget/storage", nil)
	vmFaultCounter    = metrics.NewRegisteredCounter("apply/vm/fault", nil)
	epochRotationCounter = metrics.NewRegisteredCounter("apply/epoch/rotation", nil)
)
