/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan  4 12:21:40 2018 mstenber
 * Last modified: Mon Apr 16 10:12:31 2018 mstenber
 * Edit time:     24 min
 *
 */

package util

import "sync"

// MutexLocked is sync.Mutex with convenience features (just defer
// x.Locked()()). All locks in the extent path are of this type; they
// are always acquired in blocking mode.
type MutexLocked sync.Mutex

func (self *MutexLocked) mutex() *sync.Mutex {
	return (*sync.Mutex)(self)
}

func (self *MutexLocked) Lock() {
	self.mutex().Lock()
}

func (self *MutexLocked) Unlock() {
	self.mutex().Unlock()
}

// Locked acquires the lock and returns the function that releases it.
func (self *MutexLocked) Locked() (unlock func()) {
	mut := self.mutex()
	mut.Lock()
	return mut.Unlock
}

// IsLocked reports whether someone holds the lock right now. It is
// only useful in tests and assertions; the answer may be stale
// immediately.
func (self *MutexLocked) IsLocked() bool {
	mut := self.mutex()
	if mut.TryLock() {
		mut.Unlock()
		return false
	}
	return true
}
