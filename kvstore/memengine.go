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

import "sort"

// memEngine is a deterministic in-memory Engine used by this package's
// own tests and by higher-level packages (sbat, bic, apply) that need a
// KV backend without a disk dependency, in the spirit of the teacher's
// MemDatabase (storage/database/db_manager.go's GetMemDB).
type memEngine struct {
	data map[string][]byte
}

// NewMemEngine returns an empty in-memory Engine.
func NewMemEngine() Engine {
	return &memEngine{data: make(map[string][]byte)}
}

type memCF struct{ name string }

func (c memCF) Name() string { return c.name }

func (e *memEngine) CF(name string) (CF, error) { return memCF{name: name}, nil }
func (e *memEngine) Close() error                { return nil }

func (e *memEngine) Begin() (Txn, error) {
	return &memTxn{base: e.data, overlay: make(map[string][]byte), deleted: make(map[string]bool)}, nil
}

// memTxn buffers writes in an overlay until Commit, so Discard is free
// and concurrent reads of the underlying map stay consistent.
type memTxn struct {
	base    map[string][]byte
	overlay map[string][]byte
	deleted map[string]bool
}

func (t *memTxn) Get(cf CF, key []byte) ([]byte, error) {
	k := prefixedKeyStr(cf, key)
	if t.deleted[k] {
		return nil, ErrNotFound
	}
	if v, ok := t.overlay[k]; ok {
		return append([]byte(nil), v...), nil
	}
	if v, ok := t.base[k]; ok {
		return append([]byte(nil), v...), nil
	}
	return nil, ErrNotFound
}

func (t *memTxn) Put(cf CF, key, value []byte) error {
	k := prefixedKeyStr(cf, key)
	delete(t.deleted, k)
	t.overlay[k] = append([]byte(nil), value...)
	return nil
}

func (t *memTxn) Delete(cf CF, key []byte) error {
	k := prefixedKeyStr(cf, key)
	delete(t.overlay, k)
	t.deleted[k] = true
	return nil
}

func (t *memTxn) Commit() error {
	for k := range t.deleted {
		delete(t.base, k)
	}
	for k, v := range t.overlay {
		t.base[k] = v
	}
	return nil
}

func (t *memTxn) Discard() {}

func prefixedKeyStr(cf CF, key []byte) string {
	return cf.Name() + ":" + string(key)
}

// memIterator is a simple sorted-snapshot iterator: it materializes a
// sorted key list at creation time, which is sufficient for this
// package's deterministic unit tests and keeps the implementation free
// of any balanced-tree dependency.
type memIterator struct {
	keys []string
	vals map[string][]byte
	pos  int
	ok   bool
}

func (t *memTxn) NewIterator(cf CF) Iterator {
	prefix := cf.Name() + ":"
	live := make(map[string][]byte)
	for k, v := range t.base {
		live[k] = v
	}
	for k := range t.deleted {
		delete(live, k)
	}
	for k, v := range t.overlay {
		live[k] = v
	}
	keys := make([]string, 0, len(live))
	vals := make(map[string][]byte, len(live))
	for k, v := range live {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			stripped := k[len(prefix):]
			keys = append(keys, stripped)
			vals[stripped] = v
		}
	}
	sort.Strings(keys)
	return &memIterator{keys: keys, vals: vals, pos: -1, ok: false}
}

func (it *memIterator) Seek(key []byte) {
	k := string(key)
	idx := sort.SearchStrings(it.keys, k)
	it.pos = idx
	it.ok = idx < len(it.keys)
}

func (it *memIterator) SeekForPrev(key []byte) {
	k := string(key)
	idx := sort.SearchStrings(it.keys, k)
	if idx < len(it.keys) && it.keys[idx] == k {
		it.pos = idx
		it.ok = true
		return
	}
	it.pos = idx - 1
	it.ok = it.pos >= 0
}

func (it *memIterator) Next() {
	it.pos++
	it.ok = it.pos >= 0 && it.pos < len(it.keys)
}

func (it *memIterator) Prev() {
	it.pos--
	it.ok = it.pos >= 0 && it.pos < len(it.keys)
}

func (it *memIterator) Valid() bool { return it.ok }
func (it *memIterator) Key() []byte { return []byte(it.keys[it.pos]) }
func (it *memIterator) Value() []byte {
	return append([]byte(nil), it.vals[it.keys[it.pos]]...)
}
func (it *memIterator) Release() {}
