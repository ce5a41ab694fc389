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

import "github.com/amacore/engine/params"

// Receipt is one transaction's outcome (§4.J): "ok" or a stable failure
// identifier, with gas_used only reported once the chain has crossed
// params.ForkHeight (Open Question (b)).
type Receipt struct {
	Error      string
	GasUsed    uint64
	HasGasUsed bool
}

func okReceipt(height uint64, gasUsed uint64) Receipt {
	r := Receipt{Error: "ok"}
	if height >= params.ForkHeight {
		r.GasUsed = gasUsed
		r.HasGasUsed = true
	}
	return r
}

func failReceipt(id string, height uint64, gasUsed uint64) Receipt {
	r := Receipt{Error: id}
	if height >= params.ForkHeight {
		r.GasUsed = gasUsed
		r.HasGasUsed = true
	}
	return r
}
