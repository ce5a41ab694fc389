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

import "github.com/amacore/engine/engerr"

// Contract ports original_source/.../consensus/bic/contract.rs: the only
// BIC surface for storing a guest contract's wasm bytecode.
type Contract struct{ env *Env }

func NewContract(env *Env) *Contract { return &Contract{env: env} }

func bytecodeKey(account []byte) []byte {
	return bcat([]byte("bic:contract:account:"), account, []byte(":bytecode"))
}

// Deploy is Contract.deploy(wasm_bytes). The guest-VM module validator
// (vm.CheckModuleLimits, §4.H) runs on bytecode before it reaches the BIC
// dispatch table (see apply.callBIC), so by the time Deploy is invoked the
// bytes have already passed validation.
func (c *Contract) Deploy(args [][]byte) error {
	if len(args) != 1 {
		return engerr.New(engerr.InvalidArgs)
	}
	return c.env.KV.Put(bytecodeKey(c.env.Caller.AccountCaller), args[0])
}

// Bytecode returns the deployed bytecode for account, if any.
func (c *Contract) Bytecode(account []byte) ([]byte, bool, error) {
	return c.env.KV.Get(bytecodeKey(account))
}
