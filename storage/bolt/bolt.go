/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 22:49:15 2018 mstenber
 * Last modified: Thu Apr 19 13:44:30 2018 mstenber
 * Edit time:     51 min
 *
 */

package bolt

import (
	"bytes"
	"fmt"
	"log"

	bbolt "go.etcd.io/bbolt"

	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/storage"
)

var metadataKey = []byte("metadata")

// boltBackend provides on-disk storage; everything is in one
// bucket, keyed by the volume's own key scheme.
type boltBackend struct {
	storage.DirectoryBackendBase
	db *bbolt.DB
}

var _ storage.Backend = &boltBackend{}

func NewBoltBackend() storage.Backend {
	return &boltBackend{}
}

func (self *boltBackend) Init(config storage.BackendConfiguration) {
	(&self.DirectoryBackendBase).Init(config)
	path := fmt.Sprintf("%s/bbolt.db", self.Dir)
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		log.Panic("bbolt.Open ", err)
	}
	self.db = db
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metadataKey)
		return err
	})
	if err != nil {
		log.Panic(err)
	}
}

func (self *boltBackend) Close() {
	self.db.Close()
}

func (self *boltBackend) update(cb func(b *bbolt.Bucket) error) {
	err := self.db.Update(func(tx *bbolt.Tx) error {
		return cb(tx.Bucket(metadataKey))
	})
	if err != nil {
		log.Panic("bbolt.Update ", err)
	}
}

func (self *boltBackend) Get(key []byte) (v []byte) {
	self.db.View(func(tx *bbolt.Tx) error {
		bv := tx.Bucket(metadataKey).Get(key)
		if bv != nil {
			// only valid within the transaction
			v = append([]byte{}, bv...)
		}
		return nil
	})
	return
}

func (self *boltBackend) Set(key, value []byte) {
	mlog.Printf2("storage/bolt/bolt", "bbolt.Set %x (%d b)", key, len(value))
	self.update(func(b *bbolt.Bucket) error {
		return b.Put(key, value)
	})
}

func (self *boltBackend) Delete(key []byte) {
	mlog.Printf2("storage/bolt/bolt", "bbolt.Delete %x", key)
	self.update(func(b *bbolt.Bucket) error {
		return b.Delete(key)
	})
}

func (self *boltBackend) Iterate(prefix []byte, cb storage.IterateCallback) {
	var keys, values [][]byte
	self.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(metadataKey).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			keys = append(keys, append([]byte{}, k...))
			values = append(values, append([]byte{}, v...))
		}
		return nil
	})
	// callbacks run outside the transaction, so that they may
	// modify the database
	for i, k := range keys {
		if !cb(k, values[i]) {
			return
		}
	}
}
