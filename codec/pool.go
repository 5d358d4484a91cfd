/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Apr 16 13:20:40 2018 mstenber
 * Last modified: Tue Apr 17 10:02:33 2018 mstenber
 * Edit time:     58 min
 *
 */

package codec

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/util"
)

// Tag identifies the user of pool memory, for diagnostic accounting.
type Tag int

const (
	// TagZlib covers codec stream state.
	TagZlib Tag = iota

	// TagExtent covers compression working buffers.
	TagExtent

	// TagRead covers read path payload buffers.
	TagRead

	numTags
)

func (self Tag) String() string {
	switch self {
	case TagZlib:
		return "zlib"
	case TagExtent:
		return "extent"
	case TagRead:
		return "read"
	}
	return fmt.Sprintf("tag(%d)", int(self))
}

var ErrPoolExhausted = errors.New("codec: pool memory limit reached")

// zlib levels run from HuffmanOnly (-2) to BestCompression (9)
const minLevel = -2
const maxLevel = zlib.BestCompression

// Pool hands out working memory and codec state. Allocations are
// counted per Tag; if Limit is set, byte allocations beyond it fail
// instead of growing the heap. The zero value is usable.
type Pool struct {
	// Limit is the maximum number of outstanding bytes (0 = none).
	Limit int64

	outstanding util.AtomicInt
	tags        [numTags]tagCounters

	writers [maxLevel - minLevel + 1]sync.Pool
	readers sync.Pool
}

type tagCounters struct {
	allocs, frees, bytes util.AtomicInt
}

// TagStats is snapshot of the counters of a single tag.
type TagStats struct {
	Tag           string
	Allocs, Frees int64
	Bytes         int64
}

// Alloc returns zeroed buffer of exactly size bytes.
func (self *Pool) Alloc(tag Tag, size int) ([]byte, error) {
	if !self.outstanding.CompareAndAdd(int64(size), self.Limit) {
		mlog.Printf2("codec/pool", "Alloc %v %d failed; outstanding %d limit %d",
			tag, size, self.outstanding.Get(), self.Limit)
		return nil, ErrPoolExhausted
	}
	c := &self.tags[tag]
	c.allocs.Add(1)
	c.bytes.Add(int64(size))
	return make([]byte, size), nil
}

// Free returns buffer obtained from Alloc with the same tag. Freeing
// nil is a no-op.
func (self *Pool) Free(tag Tag, b []byte) {
	if b == nil {
		return
	}
	size := int64(cap(b))
	c := &self.tags[tag]
	c.frees.Add(1)
	c.bytes.Add(-size)
	self.outstanding.Add(-size)
}

// Outstanding returns the number of bytes currently allocated.
func (self *Pool) Outstanding() int64 {
	return self.outstanding.Get()
}

func (self *Pool) Stats() []TagStats {
	r := make([]TagStats, 0, numTags)
	for i := Tag(0); i < numTags; i++ {
		c := &self.tags[i]
		r = append(r, TagStats{Tag: i.String(),
			Allocs: c.allocs.Get(),
			Frees:  c.frees.Get(),
			Bytes:  c.bytes.Get()})
	}
	return r
}

// Balanced reports whether every tag has as many frees as allocs.
func (self *Pool) Balanced() bool {
	for i := range self.tags {
		c := &self.tags[i]
		if c.allocs.Get() != c.frees.Get() {
			return false
		}
	}
	return true
}

// allocWriter is the allocate hook of deflate streams.
func (self *Pool) allocWriter(w io.Writer, level int) (*zlib.Writer, error) {
	if level < minLevel || level > maxLevel {
		return nil, fmt.Errorf("invalid compression level %d", level)
	}
	var zw *zlib.Writer
	if v := self.writers[level-minLevel].Get(); v != nil {
		zw = v.(*zlib.Writer)
		zw.Reset(w)
	} else {
		var err error
		zw, err = zlib.NewWriterLevel(w, level)
		if err != nil {
			return nil, err
		}
	}
	self.tags[TagZlib].allocs.Add(1)
	return zw, nil
}

// freeWriter is the free hook of deflate streams.
func (self *Pool) freeWriter(zw *zlib.Writer, level int) {
	self.tags[TagZlib].frees.Add(1)
	zw.Reset(nil)
	self.writers[level-minLevel].Put(zw)
}

// allocReader is the allocate hook of inflate streams. Unlike
// deflate, the header is parsed here, so corrupt input fails already
// at this point.
func (self *Pool) allocReader(r io.Reader) (io.ReadCloser, error) {
	if v := self.readers.Get(); v != nil {
		zr := v.(io.ReadCloser)
		if err := zr.(zlib.Resetter).Reset(r, nil); err != nil {
			self.readers.Put(zr)
			return nil, err
		}
		self.tags[TagZlib].allocs.Add(1)
		return zr, nil
	}
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	self.tags[TagZlib].allocs.Add(1)
	return zr, nil
}

// freeReader is the free hook of inflate streams. Readers in failed
// state are dropped rather than recycled.
func (self *Pool) freeReader(zr io.ReadCloser, reuse bool) {
	self.tags[TagZlib].frees.Add(1)
	if reuse {
		self.readers.Put(zr)
	}
}
