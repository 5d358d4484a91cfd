/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 21 11:19:49 2018 mstenber
 * Last modified: Mon Apr 16 10:31:40 2018 mstenber
 * Edit time:     7 min
 *
 */

package util

import "sync/atomic"

// AtomicInt is int64 counter that is safe to share between goroutines.
type AtomicInt int64

func (self *AtomicInt) ptr() *int64 {
	return (*int64)(self)
}

func (self *AtomicInt) Get() int64 {
	return atomic.LoadInt64(self.ptr())
}

func (self *AtomicInt) GetInt() int {
	return int(self.Get())
}

// Add returns the value after the addition.
func (self *AtomicInt) Add(value int64) int64 {
	return atomic.AddInt64(self.ptr(), value)
}

func (self *AtomicInt) AddInt(value int) int {
	return int(self.Add(int64(value)))
}

func (self *AtomicInt) Set(value int64) {
	atomic.StoreInt64(self.ptr(), value)
}

// CompareAndAdd adds value only if the result stays at or below
// limit. Zero limit means no limit.
func (self *AtomicInt) CompareAndAdd(value, limit int64) bool {
	for {
		old := self.Get()
		if limit > 0 && old+value > limit {
			return false
		}
		if atomic.CompareAndSwapInt64(self.ptr(), old, old+value) {
			return true
		}
	}
}
