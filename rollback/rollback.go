/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Apr 17 14:02:51 2018 mstenber
 * Last modified: Wed Apr 18 09:40:22 2018 mstenber
 * Edit time:     34 min
 *
 */

// rollback provides ordered log of undo records. Code that mutates
// shared state appends what it did; if the enclosing transaction
// fails, the owner of the log replays it in reverse order.
package rollback

import (
	"fmt"

	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/util"
)

// Kind of the change that was made.
type Kind int

const (
	// KindExtentInserted: Data is the inserted extent record.
	KindExtentInserted Kind = iota + 1

	// KindExtentRemoved: Data is the removed extent record.
	KindExtentRemoved

	// KindChunkAllocated: Data is the new chunk.
	KindChunkAllocated

	// KindSizeChanged: Data is the previous size.
	KindSizeChanged
)

func (self Kind) String() string {
	switch self {
	case KindExtentInserted:
		return "extent-inserted"
	case KindExtentRemoved:
		return "extent-removed"
	case KindChunkAllocated:
		return "chunk-allocated"
	case KindSizeChanged:
		return "size-changed"
	}
	return fmt.Sprintf("kind(%d)", int(self))
}

type Entry struct {
	Kind Kind
	Data interface{}
}

// Log is safe for concurrent appends; the zero value is empty log.
type Log struct {
	lock    util.MutexLocked
	entries []Entry
}

func (self *Log) Add(kind Kind, data interface{}) {
	defer self.lock.Locked()()
	mlog.Printf2("rollback/rollback", "Add %v %v", kind, data)
	self.entries = append(self.entries, Entry{Kind: kind, Data: data})
}

func (self *Log) Len() int {
	defer self.lock.Locked()()
	return len(self.entries)
}

// Entries returns copy of the entries in the order they were added.
func (self *Log) Entries() []Entry {
	defer self.lock.Locked()()
	return append([]Entry(nil), self.entries...)
}

// Clear forgets the entries; this is what commit looks like.
func (self *Log) Clear() {
	defer self.lock.Locked()()
	self.entries = nil
}

// Replay calls undo for every entry, newest first, and empties the
// log. Replay continues past failures; the first error is returned.
func (self *Log) Replay(undo func(e Entry) error) (err error) {
	self.lock.Lock()
	entries := self.entries
	self.entries = nil
	self.lock.Unlock()
	mlog.Printf2("rollback/rollback", "Replay %d entries", len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if uerr := undo(entries[i]); uerr != nil && err == nil {
			err = uerr
		}
	}
	return
}
