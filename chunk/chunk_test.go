/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Apr 17 16:31:02 2018 mstenber
 * Last modified: Wed Apr 18 10:12:44 2018 mstenber
 * Edit time:     22 min
 *
 */

package chunk

import (
	"testing"

	"github.com/stvp/assert"
)

func TestChunkAllocateRelease(t *testing.T) {
	t.Parallel()
	c := New(1000, 100, Type_DATA)
	a1, ok := c.Allocate(30)
	assert.True(t, ok)
	assert.Equal(t, a1, uint64(1000))
	a2, ok := c.Allocate(30)
	assert.True(t, ok)
	assert.Equal(t, a2, uint64(1030))
	a3, ok := c.Allocate(40)
	assert.True(t, ok)
	assert.Equal(t, a3, uint64(1060))
	assert.Equal(t, c.Available(), uint64(0))
	_, ok = c.Allocate(1)
	assert.True(t, !ok)

	c.Release(a1, 30)
	c.Release(a3, 40)
	assert.Equal(t, c.Available(), uint64(70))
	assert.Equal(t, c.largestFree(), uint64(40))

	// fragmented; enough in total, not contiguous
	_, ok = c.Allocate(50)
	assert.True(t, !ok)

	c.Release(a2, 30)
	assert.Equal(t, len(c.free), 1)
	assert.Equal(t, c.largestFree(), uint64(100))
	assert.Equal(t, c.used, uint64(0))
}

func TestChunkReserve(t *testing.T) {
	t.Parallel()
	c := New(0, 100, Type_METADATA)
	assert.True(t, c.Reserve(10, 10))
	assert.True(t, !c.Reserve(15, 10))
	assert.True(t, !c.Reserve(95, 10))
	assert.True(t, c.Reserve(0, 10))
	assert.True(t, c.Reserve(90, 10))
	assert.Equal(t, c.used, uint64(30))
	assert.Equal(t, len(c.free), 1)
	a, ok := c.Allocate(5)
	assert.True(t, ok)
	assert.Equal(t, a, uint64(20))
}

func TestChunkReleaseInvalid(t *testing.T) {
	t.Parallel()
	c := New(0, 100, Type_DATA)
	c.Allocate(10)
	defer func() {
		r := recover()
		assert.NotEqual(t, r, nil)
	}()
	c.Release(5, 10)
}

func TestChunkContains(t *testing.T) {
	t.Parallel()
	c := New(4096, 4096, Type_DATA)
	assert.True(t, !c.Contains(4095))
	assert.True(t, c.Contains(4096))
	assert.True(t, c.Contains(8191))
	assert.True(t, !c.Contains(8192))
	assert.Equal(t, Type_SYSTEM.String(), "system")
}
