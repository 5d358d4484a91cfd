/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sat Jan  6 00:13:13 2018 mstenber
 * Last modified: Thu Apr 19 13:21:50 2018 mstenber
 * Edit time:     16 min
 *
 */

package storage

import (
	"github.com/fingon/go-cexfs/codec"
	"github.com/fingon/go-cexfs/mlog"
)

type codecBackend struct {
	proxyBackend
	Codec codec.Codec
}

// NewCodecBackend wraps backend so that values pass through c.
func NewCodecBackend(backend Backend, c codec.Codec) Backend {
	return &codecBackend{proxyBackend: proxyBackend{Backend: backend}, Codec: c}
}

func (self *codecBackend) decode(key, value []byte) []byte {
	b, err := self.Codec.DecodeBytes(value)
	if err != nil {
		mlog.Panicf("Decoding %x failed: %v", key, err)
	}
	return b
}

func (self *codecBackend) Get(key []byte) []byte {
	v := self.Backend.Get(key)
	if v == nil {
		return nil
	}
	return self.decode(key, v)
}

func (self *codecBackend) Set(key, value []byte) {
	b, err := self.Codec.EncodeBytes(value)
	if err != nil {
		mlog.Panicf("Encoding %x failed: %v", key, err)
	}
	self.Backend.Set(key, b)
}

func (self *codecBackend) Iterate(prefix []byte, cb IterateCallback) {
	self.Backend.Iterate(prefix, func(key, value []byte) bool {
		return cb(key, self.decode(key, value))
	})
}
