/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 19 17:10:40 2018 mstenber
 * Last modified: Fri Apr 20 15:02:21 2018 mstenber
 * Edit time:     214 min
 *
 */

package volume

import (
	"fmt"
	"math"

	"github.com/fingon/go-cexfs/chunk"
	"github.com/fingon/go-cexfs/codec"
	"github.com/fingon/go-cexfs/extent"
	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/rollback"
	"github.com/fingon/go-cexfs/util"
)

type sizeChange struct {
	target, size uint64
}

// transaction runs cb with fresh rollback log. On success the log is
// committed, on failure replayed.
func (self *Volume) transaction(cb func(rb *rollback.Log) error) error {
	var rb rollback.Log
	err := cb(&rb)
	if err != nil {
		mlog.Printf2("volume/write", "transaction failed: %v; rolling back %d", err, rb.Len())
		if rerr := self.rollback(&rb); rerr != nil {
			mlog.Panicf("volume: rollback failed: %v (after %v)", rerr, err)
		}
		return err
	}
	self.commit(&rb)
	return nil
}

// release frees payload space once nothing refers to it.
func (self *Volume) release(candidates map[uint64]uint64) {
	for address, length := range candidates {
		if self.refCount(address) > 0 {
			continue
		}
		if self.chunks.Lookup(address) == nil {
			continue
		}
		mlog.Printf2("volume/write", " freeing %#x+%d", address, length)
		if err := self.chunks.Free(address, length); err != nil {
			mlog.Panicf("volume: free failed: %v", err)
		}
	}
}

// commit frees the space of payloads that lost their last extent.
// Until then the space stays allocated, so that rollback can restore
// the records.
func (self *Volume) commit(rb *rollback.Log) {
	candidates := make(map[uint64]uint64)
	for _, e := range rb.Entries() {
		if e.Kind == rollback.KindExtentRemoved {
			ext := e.Data.(extent.Extent)
			candidates[ext.Address] = ext.StoredBytes
		}
	}
	self.release(candidates)
	rb.Clear()
}

func (self *Volume) rollback(rb *rollback.Log) error {
	candidates := make(map[uint64]uint64)
	var chunks []*chunk.Chunk
	err := rb.Replay(func(e rollback.Entry) error {
		switch e.Kind {
		case rollback.KindExtentInserted:
			ext := e.Data.(extent.Extent)
			self.meta.Delete(extentKey(ext.Target, ext.Offset))
			self.deref(ext.Address)
			candidates[ext.Address] = ext.StoredBytes
		case rollback.KindExtentRemoved:
			ext := e.Data.(extent.Extent)
			self.putExtent(ext)
		case rollback.KindChunkAllocated:
			chunks = append(chunks, e.Data.(*chunk.Chunk))
		case rollback.KindSizeChanged:
			sc := e.Data.(sizeChange)
			self.setSize(sc.target, sc.size)
		default:
			return fmt.Errorf("volume: unknown rollback entry %v", e.Kind)
		}
		return nil
	})
	self.release(candidates)
	for _, c := range chunks {
		// Someone else may have placed data in it meanwhile.
		if self.chunks.RemoveIfEmpty(c) {
			self.meta.Delete(chunkKey(c.Offset))
			self.removeLayout(c.Offset)
		}
	}
	return err
}

func (self *Volume) putExtent(e extent.Extent) {
	b, _ := e.MarshalMsg(nil)
	self.meta.Set(extentKey(e.Target, e.Offset), b)
	self.ref(e.Address)
}

// overlapping returns the extents of target intersecting
// [start, end), in offset order.
func (self *Volume) overlapping(target, start, end uint64) (r []extent.Extent) {
	self.meta.Iterate(extentTargetPrefix(target), func(key, value []byte) bool {
		var e extent.Extent
		if _, err := e.UnmarshalMsg(value); err != nil {
			mlog.Panicf("volume: corrupt extent %x: %v", key, err)
		}
		if e.Offset >= end {
			return false
		}
		if e.End() > start {
			r = append(r, e)
		}
		return true
	})
	return
}

// Excise removes [start, end) of target from its extents. Extents
// partially inside the range are trimmed. Payload space is released
// only when the transaction owning rb commits. The caller must hold
// the target lock.
func (self *Volume) Excise(target, start, end uint64, rb *rollback.Log) error {
	for _, e := range self.overlapping(target, start, end) {
		mlog.Printf2("volume/write", "Excise [%d,%d) %v", start, end, e)
		self.meta.Delete(extentKey(e.Target, e.Offset))
		rb.Add(rollback.KindExtentRemoved, e)
		// references are taken before the last one is dropped
		if e.Offset < start {
			left := e.Trimmed(e.Offset, start)
			self.putExtent(left)
			rb.Add(rollback.KindExtentInserted, left)
		}
		if e.End() > end {
			right := e.Trimmed(end, e.End())
			self.putExtent(right)
			rb.Add(rollback.KindExtentInserted, right)
		}
		self.deref(e.Address)
	}
	return nil
}

// storeExtent writes payload to the device and records the extent.
func (self *Volume) storeExtent(target, start, address uint64, payload []byte, d extent.Decision, rb *rollback.Log) error {
	if uint64(len(payload)) != d.StoredBytes {
		mlog.Panicf("volume: payload %d != stored %d", len(payload), d.StoredBytes)
	}
	if _, err := self.dev.WriteAt(payload, int64(address)); err != nil {
		return err
	}
	e := extent.Extent{Target: target, Offset: start,
		NumBytes: d.OriginalBytes, RamBytes: d.OriginalBytes,
		Compression: d.Compression, Address: address,
		StoredBytes: d.StoredBytes}
	self.putExtent(e)
	rb.Add(rollback.KindExtentInserted, e)
	return nil
}

// insertExtentChunk tries to store the payload in c; the chunk lock
// is held by the caller.
func (self *Volume) insertExtentChunk(c *chunk.Chunk, target, start uint64, payload []byte, d extent.Decision, rb *rollback.Log) (chunk.Placement, error) {
	address, ok := c.Allocate(d.StoredBytes)
	if !ok {
		return chunk.NoSpace, nil
	}
	if err := self.storeExtent(target, start, address, payload, d, rb); err != nil {
		c.Release(address, d.StoredBytes)
		return chunk.HardError, err
	}
	return chunk.Placed, nil
}

// place is the Placer of the compressed write path.
func (self *Volume) place(target, start uint64, payload []byte, d extent.Decision, rb *rollback.Log) error {
	return self.chunks.Place(chunk.Type_DATA, d.StoredBytes,
		func(c *chunk.Chunk) (chunk.Placement, error) {
			return self.insertExtentChunk(c, target, start, payload, d, rb)
		}, rb)
}

// writeRaw is the uncompressed write path.
func (self *Volume) writeRaw(target, start, end uint64, data []byte, rb *rollback.Log) error {
	if err := self.Excise(target, start, end, rb); err != nil {
		return err
	}
	length := end - start
	h, err := self.chunks.FindAndReserve(chunk.Type_DATA, length, rb)
	if err != nil {
		return err
	}
	d := extent.Decision{Compression: codec.CompressionType_NONE,
		StoredBytes: length, OriginalBytes: length, CompressedBytes: length}
	err = self.storeExtent(target, start, h.Address, data[:length], d, rb)
	if err != nil {
		h.Release()
	}
	return err
}

// readSector fills b with the current contents of target at offset.
func (self *Volume) readSector(target, offset uint64, b []byte) error {
	r, err := self.read(target, offset, uint64(len(b)), false)
	if err != nil {
		return err
	}
	copy(b, r)
	return nil
}

// Write stores data at offset of target. The affected sectors are
// rewritten as new extents of at most MaxExtentSize bytes. Either
// all of it is written, or nothing is.
func (self *Volume) Write(target, offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	defer self.targets.Locked(target)()
	return self.transaction(func(rb *rollback.Log) error {
		return self.write(target, offset, data, rb)
	})
}

func (self *Volume) write(target, offset uint64, data []byte, rb *rollback.Log) error {
	sector := self.config.SectorSize
	dend := offset + uint64(len(data))
	start := util.AlignDown(offset, sector)
	end := util.AlignUp(dend, sector)
	buf := data
	if start != offset || end != dend {
		buf = make([]byte, end-start)
		if start != offset {
			if err := self.readSector(target, start, buf[:sector]); err != nil {
				return err
			}
		}
		if end != dend {
			if err := self.readSector(target, end-sector, buf[end-sector-start:]); err != nil {
				return err
			}
		}
		copy(buf[offset-start:], data)
	}
	for pos := start; pos < end; pos += self.config.MaxExtentSize {
		pend := util.U64Min(pos+self.config.MaxExtentSize, end)
		piece := buf[pos-start : pend-start]
		var err error
		if self.config.NoCompress {
			err = self.writeRaw(target, pos, pend, piece, rb)
		} else {
			err = self.writer.WriteCompressed(target, pos, pend, piece, rb)
		}
		if err != nil {
			return err
		}
	}
	if old := self.size(target); dend > old {
		rb.Add(rollback.KindSizeChanged, sizeChange{target, old})
		self.setSize(target, dend)
	}
	return nil
}

// Punch turns [start, end) of target into a hole that reads as
// zeros. The size of target does not change.
func (self *Volume) Punch(target, start, end uint64) error {
	if end <= start {
		return nil
	}
	defer self.targets.Locked(target)()
	return self.transaction(func(rb *rollback.Log) error {
		return self.Excise(target, start, end, rb)
	})
}

// Truncate sets the size of target, discarding data beyond it.
func (self *Volume) Truncate(target, size uint64) error {
	defer self.targets.Locked(target)()
	return self.transaction(func(rb *rollback.Log) error {
		old := self.size(target)
		if size < old {
			// also whatever sector padding was stored past old
			if err := self.Excise(target, size, math.MaxUint64, rb); err != nil {
				return err
			}
		}
		if size != old {
			rb.Add(rollback.KindSizeChanged, sizeChange{target, old})
			self.setSize(target, size)
		}
		return nil
	})
}
