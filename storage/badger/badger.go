/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 23 15:10:01 2017 mstenber
 * Last modified: Thu Apr 19 14:02:12 2018 mstenber
 * Edit time:     171 min
 *
 */

package badger

import (
	"log"

	"github.com/dgraph-io/badger"

	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/storage"
)

// badgerBackend provides on-disk storage using badger's LSM tree.
type badgerBackend struct {
	storage.DirectoryBackendBase
	db *badger.DB
}

var _ storage.Backend = &badgerBackend{}

func NewBadgerBackend() storage.Backend {
	return &badgerBackend{}
}

func (self *badgerBackend) Init(config storage.BackendConfiguration) {
	(&self.DirectoryBackendBase).Init(config)
	opts := badger.DefaultOptions
	opts.Dir = self.Dir
	opts.ValueDir = self.Dir
	db, err := badger.Open(opts)
	if err != nil {
		log.Panic("badger.Open ", err)
	}
	self.db = db
}

func (self *badgerBackend) Close() {
	self.db.Close()
}

func (self *badgerBackend) Get(key []byte) (v []byte) {
	err := self.db.View(func(txn *badger.Txn) error {
		i, err := txn.Get(key)
		if err == nil {
			v, err = i.ValueCopy(nil)
		}
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		log.Panic("get error:", err)
	}
	return
}

func (self *badgerBackend) Set(key, value []byte) {
	mlog.Printf2("storage/badger/badger", "bad.Set %x (%d b)", key, len(value))
	err := self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		log.Panic("txn.Set ", err)
	}
}

func (self *badgerBackend) Delete(key []byte) {
	mlog.Printf2("storage/badger/badger", "bad.Delete %x", key)
	err := self.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		log.Panic("txn.Delete ", err)
	}
}

func (self *badgerBackend) Iterate(prefix []byte, cb storage.IterateCallback) {
	var keys, values [][]byte
	err := self.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			keys = append(keys, append([]byte{}, item.Key()...))
			values = append(values, v)
		}
		return nil
	})
	if err != nil {
		log.Panic("iterate error:", err)
	}
	for i, k := range keys {
		if !cb(k, values[i]) {
			return
		}
	}
}
