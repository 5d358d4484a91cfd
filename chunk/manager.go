/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Apr 17 15:40:12 2018 mstenber
 * Last modified: Wed Apr 18 13:20:51 2018 mstenber
 * Edit time:     96 min
 *
 */

// chunk keeps track of the chunks (block groups) of a volume, and
// of the free space within them.
//
// Lock order is always Manager index lock first, then the lock of
// a single chunk. Chunk locks are never held across other chunks.
package chunk

import (
	"errors"
	"fmt"

	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/rollback"
	"github.com/fingon/go-cexfs/util"
)

// ErrDiskFull is returned when neither existing chunks nor a newly
// allocated one could hold the data.
var ErrDiskFull = errors.New("chunk: disk full")

var errNoChunk = errors.New("chunk: no chunk at address")

// Placement is the outcome of an Inserter attempt.
type Placement int

const (
	// Placed: the data is now in the chunk.
	Placed Placement = iota

	// NoSpace: the chunk could not hold it; try the next one.
	NoSpace

	// HardError: give up, the accompanying error is returned.
	HardError
)

func (self Placement) String() string {
	switch self {
	case Placed:
		return "placed"
	case NoSpace:
		return "no-space"
	}
	return "hard-error"
}

// Inserter tries to place data into the chunk. It is called with
// both the index lock and the chunk lock held, and must not call
// back into the Manager.
type Inserter func(c *Chunk) (Placement, error)

// Allocator produces new chunks when existing ones are full. nil
// chunk with nil error means the device has no room left. The
// allocator records what it did in the rollback log.
type Allocator interface {
	AllocChunk(t Type, rb *rollback.Log) (*Chunk, error)
}

// Manager owns the ordered chunk list.
type Manager struct {
	Allocator Allocator

	lock   util.MutexLocked
	chunks []*Chunk
}

// Add appends chunk to the list (e.g. when loading a volume).
func (self *Manager) Add(c *Chunk) {
	defer self.lock.Locked()()
	self.chunks = append(self.chunks, c)
}

// Remove drops chunk from the list; it is how a chunk allocation is
// rolled back.
func (self *Manager) Remove(c *Chunk) bool {
	defer self.lock.Locked()()
	for i, v := range self.chunks {
		if v == c {
			self.chunks = append(self.chunks[:i], self.chunks[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveIfEmpty drops chunk from the list if nothing is allocated
// from it.
func (self *Manager) RemoveIfEmpty(c *Chunk) bool {
	defer self.lock.Locked()()
	c.lock.Lock()
	used := c.used
	c.lock.Unlock()
	if used != 0 {
		return false
	}
	for i, v := range self.chunks {
		if v == c {
			self.chunks = append(self.chunks[:i], self.chunks[i+1:]...)
			return true
		}
	}
	return false
}

// Chunks returns copy of the chunk list in search order.
func (self *Manager) Chunks() []*Chunk {
	defer self.lock.Locked()()
	return append([]*Chunk(nil), self.chunks...)
}

// IsLocked is for tests; see util.MutexLocked.IsLocked.
func (self *Manager) IsLocked() bool {
	return self.lock.IsLocked()
}

func (self *Manager) lookup(address uint64) *Chunk {
	for _, c := range self.chunks {
		if c.Contains(address) {
			return c
		}
	}
	return nil
}

// Lookup finds the chunk containing the device address.
func (self *Manager) Lookup(address uint64) *Chunk {
	defer self.lock.Locked()()
	return self.lookup(address)
}

// Free returns the range to the chunk it belongs to.
func (self *Manager) Free(address, length uint64) error {
	defer self.lock.Locked()()
	c := self.lookup(address)
	if c == nil {
		return fmt.Errorf("%w %#x", errNoChunk, address)
	}
	defer c.lock.Locked()()
	c.Release(address, length)
	return nil
}

// ReserveAt marks the specific range used. It is used when free
// space is rebuilt from existing extents, and when undoing removals.
func (self *Manager) ReserveAt(address, length uint64) error {
	defer self.lock.Locked()()
	c := self.lookup(address)
	if c == nil {
		return fmt.Errorf("%w %#x", errNoChunk, address)
	}
	defer c.lock.Locked()()
	if !c.Reserve(address, length) {
		return fmt.Errorf("chunk: range %#x+%d not free in %v", address, length, c)
	}
	return nil
}

// try calls insert for the chunk if it is of the right type and has
// enough free space in total.
func (self *Manager) try(c *Chunk, t Type, length uint64, insert Inserter) (bool, error) {
	defer c.lock.Locked()()
	if c.Type != t || c.Available() < length {
		return false, nil
	}
	p, err := insert(c)
	mlog.Printf2("chunk/manager", " %v -> %v %v", c, p, err)
	switch p {
	case Placed:
		return true, nil
	case NoSpace:
		return false, nil
	}
	if err == nil {
		err = fmt.Errorf("chunk: insert into %v failed", c)
	}
	return false, err
}

// Place finds a chunk of type t that insert accepts. Chunks are
// tried first-fit in list order; if none accepts, a new chunk is
// requested from the Allocator and tried once. The index lock is
// held for the whole call, and released on every return path.
func (self *Manager) Place(t Type, length uint64, insert Inserter, rb *rollback.Log) error {
	defer self.lock.Locked()()
	mlog.Printf2("chunk/manager", "Place %v %d", t, length)
	for _, c := range self.chunks {
		ok, err := self.try(c, t, length, insert)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	if self.Allocator == nil {
		return ErrDiskFull
	}
	c, err := self.Allocator.AllocChunk(t, rb)
	if err != nil {
		return err
	}
	if c == nil {
		mlog.Printf2("chunk/manager", " no room for new chunk")
		return ErrDiskFull
	}
	self.chunks = append(self.chunks, c)
	ok, err := self.try(c, t, length, insert)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDiskFull
	}
	return nil
}

// Handle is space reserved by FindAndReserve.
type Handle struct {
	Chunk   *Chunk
	Address uint64
	Length  uint64

	manager *Manager
}

// Release gives the reserved space back.
func (self *Handle) Release() error {
	return self.manager.Free(self.Address, self.Length)
}

// FindAndReserve allocates length contiguous bytes from a chunk of
// type t, with the same search order as Place.
func (self *Manager) FindAndReserve(t Type, length uint64, rb *rollback.Log) (*Handle, error) {
	h := &Handle{Length: length, manager: self}
	err := self.Place(t, length, func(c *Chunk) (Placement, error) {
		address, ok := c.Allocate(length)
		if !ok {
			return NoSpace, nil
		}
		h.Chunk = c
		h.Address = address
		return Placed, nil
	}, rb)
	if err != nil {
		return nil, err
	}
	return h, nil
}

type ChunkStats struct {
	Offset    uint64 `json:"offset"`
	Size      uint64 `json:"size"`
	Type      string `json:"type"`
	Used      uint64 `json:"used"`
	FreeSpans int    `json:"free_spans"`
	Largest   uint64 `json:"largest_free"`
}

// Stats describes every chunk, in search order.
func (self *Manager) Stats() (ret []ChunkStats) {
	defer self.lock.Locked()()
	for _, c := range self.chunks {
		c.lock.Lock()
		ret = append(ret, ChunkStats{Offset: c.Offset, Size: c.Size,
			Type: c.Type.String(), Used: c.used,
			FreeSpans: len(c.free), Largest: c.largestFree()})
		c.lock.Unlock()
	}
	return
}
