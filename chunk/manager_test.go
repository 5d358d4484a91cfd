/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Apr 17 17:02:20 2018 mstenber
 * Last modified: Wed Apr 18 13:31:10 2018 mstenber
 * Edit time:     48 min
 *
 */

package chunk

import (
	"errors"
	"sync"
	"testing"

	"github.com/fingon/go-cexfs/rollback"
	"github.com/stvp/assert"
)

type dummyAllocator struct {
	next   uint64
	limit  uint64
	size   uint64
	calls  int
	err    error
	locked bool
	m      *Manager
}

func (self *dummyAllocator) AllocChunk(t Type, rb *rollback.Log) (*Chunk, error) {
	self.calls++
	if self.m != nil {
		self.locked = self.m.IsLocked()
	}
	if self.err != nil {
		return nil, self.err
	}
	if self.next+self.size > self.limit {
		return nil, nil
	}
	c := New(self.next, self.size, t)
	self.next += self.size
	if rb != nil {
		rb.Add(rollback.KindChunkAllocated, c)
	}
	return c, nil
}

func allocating(length uint64, got *uint64) Inserter {
	return func(c *Chunk) (Placement, error) {
		a, ok := c.Allocate(length)
		if !ok {
			return NoSpace, nil
		}
		*got = a
		return Placed, nil
	}
}

func TestPlaceFirstFit(t *testing.T) {
	t.Parallel()
	m := &Manager{}
	c1 := New(0, 4096, Type_DATA)
	c2 := New(4096, 8192, Type_DATA)
	c3 := New(16384, 8192, Type_METADATA)
	m.Add(c1)
	m.Add(c3)
	m.Add(c2)
	var tried []*Chunk
	var rb rollback.Log
	err := m.Place(Type_DATA, 6000, func(c *Chunk) (Placement, error) {
		tried = append(tried, c)
		return Placed, nil
	}, &rb)
	assert.Nil(t, err)
	// c1 too small, c3 wrong type
	assert.Equal(t, len(tried), 1)
	assert.True(t, tried[0] == c2)
	assert.True(t, !m.IsLocked())
}

func TestPlaceExactFit(t *testing.T) {
	t.Parallel()
	m := &Manager{}
	a := &dummyAllocator{next: 4096, size: 4096, limit: 1 << 20}
	m.Allocator = a
	c := New(0, 4096, Type_DATA)
	m.Add(c)
	var rb rollback.Log
	var got uint64
	err := m.Place(Type_DATA, 4096, allocating(4096, &got), &rb)
	assert.Nil(t, err)
	assert.Equal(t, got, uint64(0))
	assert.Equal(t, a.calls, 0)
	assert.Equal(t, rb.Len(), 0)
	assert.Equal(t, len(m.Chunks()), 1)
	assert.Equal(t, m.Stats()[0].Used, uint64(4096))
}

func TestPlaceNoSpaceFallsThrough(t *testing.T) {
	t.Parallel()
	m := &Manager{}
	m.Add(New(0, 4096, Type_DATA))
	m.Add(New(4096, 4096, Type_DATA))
	calls := 0
	err := m.Place(Type_DATA, 100, func(c *Chunk) (Placement, error) {
		calls++
		if calls == 1 {
			return NoSpace, nil
		}
		return Placed, nil
	}, nil)
	assert.Nil(t, err)
	assert.Equal(t, calls, 2)
}

func TestPlaceAllocChunk(t *testing.T) {
	t.Parallel()
	m := &Manager{}
	a := &dummyAllocator{size: 4096, limit: 8192, m: m}
	m.Allocator = a
	var rb rollback.Log
	var got uint64
	err := m.Place(Type_DATA, 3000, allocating(3000, &got), &rb)
	assert.Nil(t, err)
	assert.Equal(t, a.calls, 1)
	assert.True(t, a.locked)
	assert.Equal(t, rb.Len(), 1)
	assert.Equal(t, len(m.Chunks()), 1)

	// second does not fit in first chunk; new one is allocated
	err = m.Place(Type_DATA, 3000, allocating(3000, &got), &rb)
	assert.Nil(t, err)
	assert.Equal(t, got, uint64(4096))
	assert.Equal(t, a.calls, 2)

	// device is now full
	err = m.Place(Type_DATA, 3000, allocating(3000, &got), &rb)
	assert.True(t, errors.Is(err, ErrDiskFull))
	assert.Equal(t, a.calls, 3)
	assert.True(t, !m.IsLocked())
}

func TestPlaceAllocChunkError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	m := &Manager{Allocator: &dummyAllocator{err: boom}}
	err := m.Place(Type_DATA, 1, func(c *Chunk) (Placement, error) {
		return Placed, nil
	}, nil)
	assert.Equal(t, err, boom)
	assert.True(t, !m.IsLocked())
}

func TestPlaceNoAllocator(t *testing.T) {
	t.Parallel()
	m := &Manager{}
	err := m.Place(Type_DATA, 1, func(c *Chunk) (Placement, error) {
		return Placed, nil
	}, nil)
	assert.Equal(t, err, ErrDiskFull)
}

func TestPlaceHardError(t *testing.T) {
	t.Parallel()
	m := &Manager{}
	m.Add(New(0, 4096, Type_DATA))
	m.Add(New(4096, 4096, Type_DATA))
	boom := errors.New("boom")
	calls := 0
	err := m.Place(Type_DATA, 1, func(c *Chunk) (Placement, error) {
		calls++
		assert.True(t, c.lock.IsLocked())
		return HardError, boom
	}, nil)
	assert.Equal(t, err, boom)
	assert.Equal(t, calls, 1)
	assert.True(t, !m.IsLocked())

	err = m.Place(Type_DATA, 1, func(c *Chunk) (Placement, error) {
		return HardError, nil
	}, nil)
	assert.NotEqual(t, err, nil)
}

func TestFindAndReserve(t *testing.T) {
	t.Parallel()
	m := &Manager{Allocator: &dummyAllocator{size: 8192, limit: 1 << 20}}
	var rb rollback.Log
	h1, err := m.FindAndReserve(Type_DATA, 4096, &rb)
	assert.Nil(t, err)
	h2, err := m.FindAndReserve(Type_DATA, 4096, &rb)
	assert.Nil(t, err)
	assert.True(t, h1.Chunk == h2.Chunk)
	assert.Equal(t, h2.Address, uint64(4096))
	assert.Nil(t, h1.Release())
	h3, err := m.FindAndReserve(Type_DATA, 4096, &rb)
	assert.Nil(t, err)
	assert.Equal(t, h3.Address, uint64(0))
	assert.Equal(t, len(m.Chunks()), 1)

	assert.Nil(t, m.Free(h2.Address, h2.Length))
	st := m.Stats()
	assert.Equal(t, len(st), 1)
	assert.Equal(t, st[0].Used, uint64(4096))
	assert.Equal(t, st[0].Type, "data")

	assert.NotEqual(t, m.Free(1<<30, 1), nil)
	assert.Nil(t, m.ReserveAt(4096, 100))
	assert.NotEqual(t, m.ReserveAt(4096, 100), nil)
}

func TestRemove(t *testing.T) {
	t.Parallel()
	m := &Manager{}
	c := New(0, 100, Type_DATA)
	m.Add(c)
	assert.True(t, m.Lookup(50) == c)
	assert.True(t, m.Remove(c))
	assert.True(t, !m.Remove(c))
	assert.True(t, m.Lookup(50) == nil)

	m.Add(c)
	c.Allocate(10)
	assert.True(t, !m.RemoveIfEmpty(c))
	c.Release(0, 10)
	assert.True(t, m.RemoveIfEmpty(c))
	assert.Equal(t, len(m.Chunks()), 0)
}

func TestPlaceConcurrent(t *testing.T) {
	t.Parallel()
	m := &Manager{Allocator: &dummyAllocator{size: 1 << 16, limit: 1 << 24}}
	var wg sync.WaitGroup
	var mut sync.Mutex
	seen := make(map[uint64]bool)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h, err := m.FindAndReserve(Type_DATA, 4096, nil)
				assert.Nil(t, err)
				mut.Lock()
				assert.True(t, !seen[h.Address])
				seen[h.Address] = true
				mut.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, len(seen), 400)
	assert.True(t, !m.IsLocked())
}
