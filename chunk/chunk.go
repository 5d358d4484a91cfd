/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Apr 17 15:10:44 2018 mstenber
 * Last modified: Wed Apr 18 11:02:10 2018 mstenber
 * Edit time:     71 min
 *
 */

package chunk

import (
	"fmt"
	"sort"

	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/util"
)

// Type is the block group type of chunk. The values are stored on
// disk.
type Type uint64

const (
	Type_DATA     Type = 1 << 0
	Type_SYSTEM   Type = 1 << 1
	Type_METADATA Type = 1 << 2
)

func (self Type) String() string {
	switch self {
	case Type_DATA:
		return "data"
	case Type_SYSTEM:
		return "system"
	case Type_METADATA:
		return "metadata"
	}
	return fmt.Sprintf("type(%#x)", uint64(self))
}

type span struct {
	offset, size uint64
}

// Chunk is contiguous span of device space dedicated to one Type.
//
// Offset, Size and Type never change. Everything else is guarded
// by the chunk lock, which only Manager takes; code handed a *Chunk
// by Manager (e.g. an Inserter) runs with that lock held.
type Chunk struct {
	Offset uint64
	Size   uint64
	Type   Type

	lock util.MutexLocked
	used uint64

	// free space, sorted by offset, adjacent spans merged
	free []span
}

// New creates empty chunk covering [offset, offset+size).
func New(offset, size uint64, t Type) *Chunk {
	return &Chunk{Offset: offset, Size: size, Type: t,
		free: []span{{offset: offset, size: size}}}
}

func (self *Chunk) String() string {
	return fmt.Sprintf("chunk{%v @%#x+%#x used:%d}", self.Type, self.Offset, self.Size, self.used)
}

// Available is the total free space; it may be fragmented. The
// caller must hold the chunk lock (see Manager.Stats otherwise).
func (self *Chunk) Available() uint64 {
	return self.Size - self.used
}

// Contains reports whether the device address is within the chunk.
func (self *Chunk) Contains(address uint64) bool {
	return address >= self.Offset && address-self.Offset < self.Size
}

// Allocate finds the first free span with room for length bytes, and
// marks it used. ok is false if no contiguous span is large enough.
func (self *Chunk) Allocate(length uint64) (address uint64, ok bool) {
	for i, s := range self.free {
		if s.size < length {
			continue
		}
		address = s.offset
		if s.size == length {
			self.free = append(self.free[:i], self.free[i+1:]...)
		} else {
			self.free[i] = span{offset: s.offset + length, size: s.size - length}
		}
		self.used += length
		mlog.Printf2("chunk/chunk", "%v.Allocate %d -> %#x", self, length, address)
		return address, true
	}
	return 0, false
}

// Reserve marks the specific range used. It fails if any part of it
// is already in use.
func (self *Chunk) Reserve(address, length uint64) bool {
	if length == 0 {
		return true
	}
	i := sort.Search(len(self.free), func(i int) bool {
		s := self.free[i]
		return s.offset+s.size > address
	})
	if i == len(self.free) {
		return false
	}
	s := self.free[i]
	if s.offset > address || s.offset+s.size < address+length {
		return false
	}
	var repl []span
	if s.offset < address {
		repl = append(repl, span{offset: s.offset, size: address - s.offset})
	}
	if end := address + length; end < s.offset+s.size {
		repl = append(repl, span{offset: end, size: s.offset + s.size - end})
	}
	self.free = append(self.free[:i], append(repl, self.free[i+1:]...)...)
	self.used += length
	return true
}

// Release returns the range to free space. Releasing space that is
// not in use is a bug.
func (self *Chunk) Release(address, length uint64) {
	if length == 0 {
		return
	}
	if !self.Contains(address) || address+length > self.Offset+self.Size {
		mlog.Panicf("%v.Release out of range %#x+%d", self, address, length)
	}
	i := sort.Search(len(self.free), func(i int) bool {
		return self.free[i].offset >= address
	})
	if i < len(self.free) && address+length > self.free[i].offset {
		mlog.Panicf("%v.Release overlaps free space at %#x+%d", self, address, length)
	}
	if i > 0 {
		p := self.free[i-1]
		if p.offset+p.size > address {
			mlog.Panicf("%v.Release overlaps free space at %#x+%d", self, address, length)
		}
	}
	self.free = append(self.free, span{})
	copy(self.free[i+1:], self.free[i:])
	self.free[i] = span{offset: address, size: length}
	// merge with neighbours
	if i+1 < len(self.free) && address+length == self.free[i+1].offset {
		self.free[i].size += self.free[i+1].size
		self.free = append(self.free[:i+1], self.free[i+2:]...)
	}
	if i > 0 && self.free[i-1].offset+self.free[i-1].size == address {
		self.free[i-1].size += self.free[i].size
		self.free = append(self.free[:i], self.free[i+1:]...)
	}
	self.used -= length
	mlog.Printf2("chunk/chunk", "%v.Release %#x+%d", self, address, length)
}

// largestFree is the biggest contiguous allocation currently possible.
func (self *Chunk) largestFree() (r uint64) {
	for _, s := range self.free {
		r = util.U64Max(r, s.size)
	}
	return
}
