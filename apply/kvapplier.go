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

import (
	"github.com/amacore/engine/kvstore"
	"github.com/amacore/engine/mutation"
)

// kvApplier replays a reverse-journal tail directly against the live KV
// transaction, bypassing the Facade's budgets and forward journaling
// entirely: it is only ever handed the Reverse slice of a failed tx,
// whose effect must disappear from the store without itself becoming a
// journaled event (mutation.Applier, §4.B Replay).
type kvApplier struct {
	txn kvstore.Txn
	cf  kvstore.CF
}

func (a kvApplier) Apply(m mutation.Mutation) error {
	switch m.Kind {
	case mutation.Put:
		return a.txn.Put(a.cf, m.Key, m.Value)
	case mutation.Delete:
		if err := a.txn.Delete(a.cf, m.Key); err != nil && err != kvstore.ErrNotFound {
			return err
		}
		return nil
	case mutation.SetBit:
		return a.setBit(m.Key, m.BitIndex, m.BloomSize)
	case mutation.ClearBit:
		return a.clearBit(m.Key, m.BitIndex)
	default:
		return nil
	}
}

func (a kvApplier) setBit(key []byte, bitIndex, bloomSize uint32) error {
	page, err := a.txn.Get(a.cf, key)
	if err == kvstore.ErrNotFound {
		page = make([]byte, (bloomSize+7)/8)
	} else if err != nil {
		return err
	}
	page[bitIndex/8] |= byte(1) << (7 - bitIndex%8)
	return a.txn.Put(a.cf, key, page)
}

func (a kvApplier) clearBit(key []byte, bitIndex uint32) error {
	page, err := a.txn.Get(a.cf, key)
	if err == kvstore.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	page[bitIndex/8] &^= byte(1) << (7 - bitIndex%8)
	return a.txn.Put(a.cf, key, page)
}
