/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 17 22:20:08 2017 mstenber
 * Last modified: Thu Apr 19 13:30:02 2018 mstenber
 * Edit time:     78 min
 *
 */

package inmemory

import (
	"sort"
	"strings"

	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/storage"
	"github.com/fingon/go-cexfs/util"
)

// inMemoryBackend provides In-memory storage; everything is just
// stored in a map, and lost on Close.
type inMemoryBackend struct {
	lock   util.MutexLocked
	values map[string][]byte
}

var _ storage.Backend = &inMemoryBackend{}

func NewInMemoryBackend() storage.Backend {
	return &inMemoryBackend{}
}

func (self *inMemoryBackend) Init(config storage.BackendConfiguration) {
	self.values = make(map[string][]byte)
}

func (self *inMemoryBackend) Close() {
}

func (self *inMemoryBackend) Get(key []byte) []byte {
	defer self.lock.Locked()()
	v, ok := self.values[string(key)]
	if !ok {
		return nil
	}
	return append([]byte{}, v...)
}

func (self *inMemoryBackend) Set(key, value []byte) {
	defer self.lock.Locked()()
	mlog.Printf2("storage/inmemory/inmemory", "im.Set %x (%d b)", key, len(value))
	self.values[string(key)] = append([]byte{}, value...)
}

func (self *inMemoryBackend) Delete(key []byte) {
	defer self.lock.Locked()()
	mlog.Printf2("storage/inmemory/inmemory", "im.Delete %x", key)
	delete(self.values, string(key))
}

func (self *inMemoryBackend) Iterate(prefix []byte, cb storage.IterateCallback) {
	type kv struct {
		k string
		v []byte
	}
	var items []kv
	p := string(prefix)
	self.lock.Lock()
	for k, v := range self.values {
		if strings.HasPrefix(k, p) {
			items = append(items, kv{k, append([]byte{}, v...)})
		}
	}
	self.lock.Unlock()
	sort.Slice(items, func(i, j int) bool {
		return items[i].k < items[j].k
	})
	for _, it := range items {
		if !cb([]byte(it.k), it.v) {
			return
		}
	}
}
