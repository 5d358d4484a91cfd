/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 01:52:26 2018 mstenber
 * Last modified: Mon Apr 16 10:20:02 2018 mstenber
 * Edit time:     22 min
 *
 */

package util

import "github.com/fingon/go-cexfs/mlog"

type lockedMapEntry struct {
	lock  MutexLocked
	users int
}

// MutexLockedMap provides a lock per (comparable) name. Entries exist
// only while someone holds or waits for them.
type MutexLockedMap struct {
	l MutexLocked
	m map[interface{}]*lockedMapEntry
}

// Locked blocks until the lock of 'name' is ours, and returns the
// function that releases it.
func (self *MutexLockedMap) Locked(name interface{}) func() {
	self.l.Lock()
	if self.m == nil {
		self.m = make(map[interface{}]*lockedMapEntry)
	}
	e := self.m[name]
	if e == nil {
		mlog.Printf2("util/lockedmap", "Locked created lock %v", name)
		e = &lockedMapEntry{}
		self.m[name] = e
	}
	e.users++
	self.l.Unlock()
	e.lock.Lock()
	mlog.Printf2("util/lockedmap", "Locked %v", name)
	return func() {
		defer self.l.Locked()()
		mlog.Printf2("util/lockedmap", "Releasing %v", name)
		e.users--
		if e.users == 0 {
			delete(self.m, name)
		}
		e.lock.Unlock()
	}
}

// Len returns the number of names currently locked or waited on.
func (self *MutexLockedMap) Len() int {
	defer self.l.Locked()()
	return len(self.m)
}
