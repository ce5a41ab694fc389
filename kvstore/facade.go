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

	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/mutation"
	"github.com/amacore/engine/params"
)

// i128 bounds: a signed 128-bit value, per spec.md's "i128" gas/balance
// unit. kv_increment overflow of this range is the one fatal condition
// the facade raises (§7 kind 5).
var (
	i128Min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	i128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
)

// Facade is the budget-charging, journaling KV operation surface described
// in §4.C, sitting directly on top of a Txn against one CF. It mirrors the
// way the teacher wraps its raw StateDB in a metered, revertible
// state_object (core/state/statedb.go) — here generalized from per-account
// storage slots to arbitrary namespaced keys.
type Facade struct {
	txn   Txn
	cf    CF
	table string

	exec    *Budget
	storage *Budget

	readonly bool
	trackOff bool

	Forward *mutation.Journal
	Reverse *mutation.Journal
}

// NewFacade wraps txn/cf with the given budgets. table is the mutation
// journal's table identity (normally cf.Name()).
func NewFacade(txn Txn, cf CF, exec, storage *Budget) *Facade {
	return &Facade{
		txn:     txn,
		cf:      cf,
		table:   cf.Name(),
		exec:    exec,
		storage: storage,
		Forward: mutation.NewJournal(),
		Reverse: mutation.NewJournal(),
	}
}

// Txn exposes the live write transaction the facade journals against,
// for callers (the apply driver's revert replay) that must bypass the
// facade's budgets and journaling.
func (f *Facade) Txn() Txn { return f.txn }

// CF exposes the column family the facade operates on.
func (f *Facade) CF() CF { return f.cf }

// SetReadonly toggles the view-mode poison: once true, every write
// operation aborts with ExecCannotWriteDuringView without touching the
// journal or budgets.
func (f *Facade) SetReadonly(readonly bool) { f.readonly = readonly }

// SetTrackOff disables budget decrements (used by the exit hook and root
// recomputation, which still journal mutations but must not spend a tx's
// budget) without altering journaling behavior.
func (f *Facade) SetTrackOff(off bool) { f.trackOff = off }

// SetBudgets swaps in fresh exec/storage budgets, letting one Facade be
// reused across an entry's transactions while each gets its own budget
// pool (the apply driver resets these at the start of every tx's execute
// pass, §4.J step 2).
func (f *Facade) SetBudgets(exec, storage *Budget) {
	f.exec = exec
	f.storage = storage
}

// ChargeExec spends amt against the execution budget alone, bypassing
// the per-call read/write byte pricing below: the guest VM's per-
// operator tariff (§4.H) is charged this way at every host-import
// boundary crossing rather than per compiled instruction.
func (f *Facade) ChargeExec(amt int64) error {
	return f.charge(amt, 0)
}

func (f *Facade) charge(execAmt, storageAmt int64) error {
	if f.trackOff {
		return nil
	}
	if execAmt > 0 {
		if err := f.exec.Charge(execAmt); err != nil {
			return err
		}
	}
	if storageAmt > 0 {
		if err := f.storage.Charge(storageAmt); err != nil {
			return err
		}
	}
	return nil
}

func (f *Facade) checkSizes(key, value []byte) error {
	if len(key) == 0 || len(key) > params.MaxKeySize {
		return engerr.New(engerr.InvalidArgs)
	}
	if len(value) > params.MaxValueSize {
		return engerr.New(engerr.InvalidArgs)
	}
	return nil
}

// Put implements kv_put (§4.C): charge, then write, then journal both
// directions so a failed transaction can be unwound via mutation.Replay.
func (f *Facade) Put(key, value []byte) error {
	if f.readonly {
		return engerr.New(engerr.ExecCannotWriteDuringView)
	}
	if err := f.checkSizes(key, value); err != nil {
		return err
	}

	if err := f.charge(execCost(len(key), len(value)), 0); err != nil {
		return err
	}

	old, err := f.txn.Get(f.cf, key)
	switch err {
	case ErrNotFound:
		if err := f.charge(0, newLeafStorageCost(len(key), len(value))); err != nil {
			return err
		}
		if err := f.txn.Put(f.cf, key, value); err != nil {
			return err
		}
		f.Forward.Append(mutation.NewPut(f.table, key, value))
		f.Reverse.Append(mutation.NewDelete(f.table, key))
		return nil
	case nil:
		if err := f.charge(0, growStorageCost(len(value)-len(old))); err != nil {
			return err
		}
		if err := f.txn.Put(f.cf, key, value); err != nil {
			return err
		}
		f.Forward.Append(mutation.NewPut(f.table, key, value))
		f.Reverse.Append(mutation.NewPut(f.table, key, old))
		return nil
	default:
		return err
	}
}

// Delete implements kv_delete: idempotent on an absent key (still charges
// the write-base cost, but leaves no journal entry since nothing changed).
func (f *Facade) Delete(key []byte) error {
	if f.readonly {
		return engerr.New(engerr.ExecCannotWriteDuringView)
	}
	if len(key) == 0 || len(key) > params.MaxKeySize {
		return engerr.New(engerr.InvalidArgs)
	}
	if err := f.charge(execCost(len(key), 0), 0); err != nil {
		return err
	}

	old, err := f.txn.Get(f.cf, key)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if err := f.txn.Delete(f.cf, key); err != nil {
		return err
	}
	f.Forward.Append(mutation.NewDelete(f.table, key))
	f.Reverse.Append(mutation.NewPut(f.table, key, old))
	return nil
}

// Increment implements kv_increment: an atomic decimal-ASCII integer add.
// Absent keys read as zero. A result outside the i128 range is a fatal
// abort (the whole entry, not just the current tx, must unwind).
func (f *Facade) Increment(key []byte, delta *big.Int) (*big.Int, error) {
	if f.readonly {
		return nil, engerr.New(engerr.ExecCannotWriteDuringView)
	}
	if len(key) == 0 || len(key) > params.MaxKeySize {
		return nil, engerr.New(engerr.InvalidArgs)
	}

	old, getErr := f.txn.Get(f.cf, key)
	absent := getErr == ErrNotFound
	if getErr != nil && !absent {
		return nil, getErr
	}

	oldVal := big.NewInt(0)
	if !absent {
		parsed, ok := new(big.Int).SetString(string(old), 10)
		if !ok {
			return nil, engerr.Wrap(engerr.InvalidArgs, errNotDecimal{string(old)})
		}
		oldVal = parsed
	}

	newVal := new(big.Int).Add(oldVal, delta)
	if newVal.Cmp(i128Min) < 0 || newVal.Cmp(i128Max) > 0 {
		return nil, engerr.NewFatal(engerr.ExecKVIncrementOverflow)
	}

	newBytes := []byte(newVal.String())
	if err := f.checkSizes(key, newBytes); err != nil {
		return nil, err
	}
	if err := f.charge(execCost(len(key), len(newBytes)), 0); err != nil {
		return nil, err
	}

	if absent {
		if err := f.charge(0, newLeafStorageCost(len(key), len(newBytes))); err != nil {
			return nil, err
		}
		if err := f.txn.Put(f.cf, key, newBytes); err != nil {
			return nil, err
		}
		f.Forward.Append(mutation.NewPut(f.table, key, newBytes))
		f.Reverse.Append(mutation.NewDelete(f.table, key))
		return newVal, nil
	}

	if err := f.charge(0, growStorageCost(len(newBytes)-len(old))); err != nil {
		return nil, err
	}
	if err := f.txn.Put(f.cf, key, newBytes); err != nil {
		return nil, err
	}
	f.Forward.Append(mutation.NewPut(f.table, key, newBytes))
	f.Reverse.Append(mutation.NewPut(f.table, key, old))
	return newVal, nil
}

type errNotDecimal struct{ s string }

func (e errNotDecimal) Error() string { return "kvstore: not a decimal integer: " + e.s }

// SetBit implements kv_set_bit over a lazily-created, zero-filled
// Bloom-page-sized bit array (params.BloomPageBytes). It reports whether
// the bit actually flipped from 0 to 1; a no-op set costs exec only.
func (f *Facade) SetBit(key []byte, bitIndex uint32) (bool, error) {
	if f.readonly {
		return false, engerr.New(engerr.ExecCannotWriteDuringView)
	}
	if len(key) == 0 || len(key) > params.MaxKeySize {
		return false, engerr.New(engerr.InvalidArgs)
	}
	if int(bitIndex) >= params.BloomPageBits {
		return false, engerr.New(engerr.InvalidArgs)
	}

	if err := f.charge(execCost(len(key), 0), 0); err != nil {
		return false, err
	}

	page, err := f.txn.Get(f.cf, key)
	created := false
	switch err {
	case ErrNotFound:
		page = make([]byte, params.BloomPageBytes)
		created = true
	case nil:
	default:
		return false, err
	}

	byteIdx := bitIndex / 8
	mask := byte(1) << (7 - bitIndex%8)
	if !created && page[byteIdx]&mask != 0 {
		// Already set and not freshly created: a pure no-op.
		return false, nil
	}

	page[byteIdx] |= mask
	if created {
		if err := f.charge(0, newLeafStorageCost(len(key), len(page))); err != nil {
			return false, err
		}
		if err := f.txn.Put(f.cf, key, page); err != nil {
			return false, err
		}
		f.Forward.Append(mutation.NewSetBit(f.table, key, bitIndex, params.BloomPageBits))
		f.Reverse.Append(mutation.NewDelete(f.table, key))
		return true, nil
	}

	if err := f.txn.Put(f.cf, key, page); err != nil {
		return false, err
	}
	f.Forward.Append(mutation.NewSetBit(f.table, key, bitIndex, params.BloomPageBits))
	f.Reverse.Append(mutation.NewClearBit(f.table, key, bitIndex))
	return true, nil
}

// Get implements kv_get: a single read-priced lookup. ok is false (with a
// nil error) when the key is absent.
func (f *Facade) Get(key []byte) (value []byte, ok bool, err error) {
	v, err := f.txn.Get(f.cf, key)
	if err == ErrNotFound {
		if cerr := f.charge(readCost(len(key), 0), 0); cerr != nil {
			return nil, false, cerr
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if cerr := f.charge(readCost(len(key), len(v)), 0); cerr != nil {
		return nil, false, cerr
	}
	return v, true, nil
}

// Exists implements kv_exists in terms of Get.
func (f *Facade) Exists(key []byte) (bool, error) {
	_, ok, err := f.Get(key)
	return ok, err
}

// GetNext implements kv_get_next: the first key strictly greater than key
// in this CF, bounded by params.PrefixScanLimit steps.
func (f *Facade) GetNext(key []byte) (nextKey, value []byte, ok bool, err error) {
	it := f.txn.NewIterator(f.cf)
	defer it.Release()

	it.Seek(key)
	steps := 0
	for it.Valid() && string(it.Key()) <= string(key) {
		it.Next()
		steps++
		if steps > params.PrefixScanLimit {
			return nil, nil, false, nil
		}
	}
	if !it.Valid() {
		if cerr := f.charge(readCost(len(key), 0), 0); cerr != nil {
			return nil, nil, false, cerr
		}
		return nil, nil, false, nil
	}
	k, v := it.Key(), it.Value()
	if cerr := f.charge(readCost(len(k), len(v)), 0); cerr != nil {
		return nil, nil, false, cerr
	}
	return k, v, true, nil
}

// GetPrev implements kv_get_prev: the last key strictly less than key.
func (f *Facade) GetPrev(key []byte) (prevKey, value []byte, ok bool, err error) {
	it := f.txn.NewIterator(f.cf)
	defer it.Release()

	it.SeekForPrev(key)
	steps := 0
	for it.Valid() && string(it.Key()) >= string(key) {
		it.Prev()
		steps++
		if steps > params.PrefixScanLimit {
			return nil, nil, false, nil
		}
	}
	if !it.Valid() {
		if cerr := f.charge(readCost(len(key), 0), 0); cerr != nil {
			return nil, nil, false, cerr
		}
		return nil, nil, false, nil
	}
	k, v := it.Key(), it.Value()
	if cerr := f.charge(readCost(len(k), len(v)), 0); cerr != nil {
		return nil, nil, false, cerr
	}
	return k, v, true, nil
}
