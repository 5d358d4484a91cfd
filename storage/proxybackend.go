/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 12:20:48 2018 mstenber
 * Last modified: Thu Apr 19 13:10:11 2018 mstenber
 * Edit time:     9 min
 *
 */

package storage

import "github.com/fingon/go-cexfs/mlog"

// proxyBackend passes everything to Backend; embed it and override
// what needs changing.
type proxyBackend struct {
	Backend Backend
}

var _ Backend = &proxyBackend{}

func (self *proxyBackend) Init(config BackendConfiguration) {
	self.Backend.Init(config)
}

func (self *proxyBackend) Close() {
	mlog.Printf2("storage/proxybackend", "proxying backend Close()")
	self.Backend.Close()
}

func (self *proxyBackend) Get(key []byte) []byte {
	return self.Backend.Get(key)
}

func (self *proxyBackend) Set(key, value []byte) {
	self.Backend.Set(key, value)
}

func (self *proxyBackend) Delete(key []byte) {
	self.Backend.Delete(key)
}

func (self *proxyBackend) Iterate(prefix []byte, cb IterateCallback) {
	self.Backend.Iterate(prefix, cb)
}

func (self *proxyBackend) GetBytesAvailable() uint64 {
	if sr, ok := self.Backend.(SpaceReporter); ok {
		return sr.GetBytesAvailable()
	}
	return 0
}

func (self *proxyBackend) GetBytesUsed() uint64 {
	if sr, ok := self.Backend.(SpaceReporter); ok {
		return sr.GetBytesUsed()
	}
	return 0
}
