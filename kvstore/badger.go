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
	"os"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"

	"github.com/amacore/engine/log"
)

const gcThreshold = int64(1 << 30)
const sizeGCTickerTime = 1 * time.Minute

// badgerEngine is a single badger.DB shared by every CF. Badger has no
// native column-family concept, so CFs are simulated the way the teacher
// simulates a "Table" view over one database (storage/database/db_manager.go's
// NewTable(db, prefix)): every key is namespaced by a "<cf>:" prefix.
type badgerEngine struct {
	db       *badger.DB
	logger   log.Logger
	gcTicker *time.Ticker
}

// NewBadgerEngine opens (creating if absent) a badger store rooted at dir.
func NewBadgerEngine(dir string) (Engine, error) {
	logger := log.NewModuleLogger(log.KVStore).With("dir", dir)

	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return nil, errors.Errorf("kvstore: %s is not a directory", dir)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "kvstore: mkdir")
		}
	} else {
		return nil, errors.Wrap(err, "kvstore: stat")
	}

	opts := badger.DefaultOptions(dir)
	opts.Dir = dir
	opts.ValueDir = dir

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "kvstore: badger open")
	}

	e := &badgerEngine{db: db, logger: logger, gcTicker: time.NewTicker(sizeGCTickerTime)}
	go e.runValueLogGC()
	return e, nil
}

func (e *badgerEngine) runValueLogGC() {
	_, last := e.db.Size()
	for range e.gcTicker.C {
		_, cur := e.db.Size()
		if cur-last < gcThreshold {
			continue
		}
		if err := e.db.RunValueLogGC(0.5); err != nil {
			e.logger.Error("value log gc failed", "err", err)
			continue
		}
		_, last = e.db.Size()
	}
}

type badgerCF struct{ name string }

func (c badgerCF) Name() string { return c.name }

func (e *badgerEngine) CF(name string) (CF, error) { return badgerCF{name: name}, nil }

func (e *badgerEngine) Begin() (Txn, error) {
	return &badgerTxn{txn: e.db.NewTransaction(true)}, nil
}

func (e *badgerEngine) Close() error {
	e.gcTicker.Stop()
	return e.db.Close()
}

func prefixedKey(cf CF, key []byte) []byte {
	out := make([]byte, 0, len(cf.Name())+1+len(key))
	out = append(out, cf.Name()...)
	out = append(out, ':')
	out = append(out, key...)
	return out
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(cf CF, key []byte) ([]byte, error) {
	item, err := t.txn.Get(prefixedKey(cf, key))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Put(cf CF, key, value []byte) error {
	return t.txn.Set(prefixedKey(cf, key), value)
}

func (t *badgerTxn) Delete(cf CF, key []byte) error {
	return t.txn.Delete(prefixedKey(cf, key))
}

func (t *badgerTxn) NewIterator(cf CF) Iterator {
	prefix := append([]byte(cf.Name()), ':')
	return &badgerIterator{txn: t.txn, prefix: prefix}
}

func (t *badgerTxn) Commit() error { return t.txn.Commit() }
func (t *badgerTxn) Discard()      { t.txn.Discard() }

// badgerIterator lazily constructs a forward or reverse badger.Iterator
// depending on which of Seek/SeekForPrev was called last, since badger
// fixes iteration direction at iterator-creation time.
type badgerIterator struct {
	txn     *badger.Txn
	prefix  []byte
	it      *badger.Iterator
	reverse bool
}

func (it *badgerIterator) ensure(reverse bool) {
	if it.it != nil && it.reverse == reverse {
		return
	}
	if it.it != nil {
		it.it.Close()
	}
	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	it.it = it.txn.NewIterator(opts)
	it.reverse = reverse
}

func (it *badgerIterator) Seek(key []byte) {
	it.ensure(false)
	it.it.Seek(prefixedKeyRaw(it.prefix, key))
}

func (it *badgerIterator) SeekForPrev(key []byte) {
	it.ensure(true)
	it.it.Seek(prefixedKeyRaw(it.prefix, key))
}

func prefixedKeyRaw(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	out = append(out, key...)
	return out
}

func (it *badgerIterator) Next() { it.it.Next() }
func (it *badgerIterator) Prev() { it.it.Next() } // direction fixed by ensure(true)

func (it *badgerIterator) Valid() bool {
	return it.it != nil && it.it.ValidForPrefix(it.prefix)
}

func (it *badgerIterator) Key() []byte {
	k := it.it.Item().KeyCopy(nil)
	return bytes.TrimPrefix(k, it.prefix)
}

func (it *badgerIterator) Value() []byte {
	v, _ := it.it.Item().ValueCopy(nil)
	return v
}

func (it *badgerIterator) Release() {
	if it.it != nil {
		it.it.Close()
	}
}
