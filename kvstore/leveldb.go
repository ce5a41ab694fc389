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
	"bytes"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	goleveldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelDBEngine is the secondary/compat engine backed by
// github.com/syndtr/goleveldb (teacher storage/database/leveldb_database.go),
// used for environments where cgo-free, pure-Go storage is preferred over
// badger. CFs are simulated the same "<cf>:key" prefixing badger.go uses.
type levelDBEngine struct {
	db *leveldb.DB
}

// NewLevelDBEngine opens (creating if absent) a leveldb store at dir.
func NewLevelDBEngine(dir string) (Engine, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, errors.Wrap(err, "kvstore: leveldb open")
	}
	return &levelDBEngine{db: db}, nil
}

type levelCF struct{ name string }

func (c levelCF) Name() string { return c.name }

func (e *levelDBEngine) CF(name string) (CF, error) { return levelCF{name: name}, nil }

func (e *levelDBEngine) Begin() (Txn, error) {
	tx, err := e.db.OpenTransaction()
	if err != nil {
		return nil, errors.Wrap(err, "kvstore: leveldb begin")
	}
	return &levelDBTxn{tx: tx}, nil
}

func (e *levelDBEngine) Close() error { return e.db.Close() }

type levelDBTxn struct {
	tx *leveldb.Transaction
}

func (t *levelDBTxn) Get(cf CF, key []byte) ([]byte, error) {
	v, err := t.tx.Get(prefixedKey(cf, key), nil)
	if err == goleveldbErrors.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), v...), nil
}

func (t *levelDBTxn) Put(cf CF, key, value []byte) error {
	return t.tx.Put(prefixedKey(cf, key), value, nil)
}

func (t *levelDBTxn) Delete(cf CF, key []byte) error {
	return t.tx.Delete(prefixedKey(cf, key), nil)
}

func (t *levelDBTxn) NewIterator(cf CF) Iterator {
	prefix := append([]byte(cf.Name()), ':')
	it := t.tx.NewIterator(util.BytesPrefix(prefix), nil)
	return &levelDBIterator{it: it, prefix: prefix}
}

func (t *levelDBTxn) Commit() error { return t.tx.Commit() }
func (t *levelDBTxn) Discard()      { t.tx.Discard() }

type levelDBIterator struct {
	it     interface {
		Seek(key []byte) bool
		Next() bool
		Prev() bool
		Last() bool
		Valid() bool
		Key() []byte
		Value() []byte
		Release()
	}
	prefix []byte
}

func (it *levelDBIterator) Seek(key []byte) {
	it.it.Seek(prefixedKeyRaw(it.prefix, key))
}

func (it *levelDBIterator) SeekForPrev(key []byte) {
	target := prefixedKeyRaw(it.prefix, key)
	if it.it.Seek(target) {
		if bytes.Equal(it.it.Key(), target) {
			return
		}
		it.it.Prev()
		return
	}
	it.it.Last()
}

func (it *levelDBIterator) Next() { it.it.Next() }
func (it *levelDBIterator) Prev() { it.it.Prev() }
func (it *levelDBIterator) Valid() bool {
	return it.it.Valid() && bytes.HasPrefix(it.it.Key(), it.prefix)
}
func (it *levelDBIterator) Key() []byte   { return bytes.TrimPrefix(it.it.Key(), it.prefix) }
func (it *levelDBIterator) Value() []byte { return append([]byte(nil), it.it.Value()...) }
func (it *levelDBIterator) Release()      { it.it.Release() }
