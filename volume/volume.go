/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 19 16:02:12 2018 mstenber
 * Last modified: Fri Apr 20 14:31:40 2018 mstenber
 * Edit time:     188 min
 *
 */

// volume ties the extent data path together: a device carved into
// chunks, metadata (chunk items, extent records, sizes) in a
// storage backend, and transactional reads and writes of targets
// (logical byte streams, e.g. file contents).
//
// Lock order: per-target lock, chunk index lock, chunk lock, then
// the reference and layout locks.
package volume

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fingon/go-cexfs/chunk"
	"github.com/fingon/go-cexfs/codec"
	"github.com/fingon/go-cexfs/device"
	"github.com/fingon/go-cexfs/extent"
	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/rollback"
	"github.com/fingon/go-cexfs/storage"
	"github.com/fingon/go-cexfs/storage/factory"
	"github.com/fingon/go-cexfs/util"
)

type span struct {
	offset, size uint64
}

type Volume struct {
	config Configuration
	pool   *codec.Pool
	meta   storage.Backend
	dev    device.Device
	chunks chunk.Manager
	writer extent.Writer

	// targets serializes operations on a single target
	targets util.MutexLockedMap

	// decoders bounds parallel extent decoding of reads
	decoders util.ParallelLimiter

	// refs counts extent records per device address
	refLock util.MutexLocked
	refs    map[uint64]int

	// layout is the device space of chunks, sorted by offset
	layoutLock util.MutexLocked
	layout     []span
}

var _ chunk.Allocator = &Volume{}

// Open creates or loads the volume described by config.
func Open(config Configuration) (*Volume, error) {
	config = config.withDefaults()
	persistent := factory.IsPersistent(config.BackendName)
	if persistent && config.Directory == "" {
		return nil, fmt.Errorf("volume: backend %s requires directory", config.BackendName)
	}
	meta, err := factory.NewWithConfig(config.BackendName,
		storage.BackendConfiguration{Directory: config.Directory,
			Codec: codec.CodecChain{}.Init(&codec.CompressingCodec{})})
	if err != nil {
		return nil, err
	}
	self := &Volume{meta: meta, refs: make(map[uint64]int)}
	if err = self.loadHeader(&config); err != nil {
		meta.Close()
		return nil, err
	}
	self.config = config
	if persistent {
		self.dev, err = device.NewFileDevice(filepath.Join(config.Directory, "device"), config.DeviceSize)
		if err != nil {
			meta.Close()
			return nil, err
		}
	} else {
		self.dev = device.NewMemoryDevice(config.DeviceSize)
	}
	self.pool = &codec.Pool{Limit: config.MemoryLimit}
	self.chunks.Allocator = self
	self.writer = extent.Writer{Pool: self.pool,
		Excise:     self.Excise,
		Place:      self.place,
		SectorSize: config.SectorSize,
		Level:      config.CompressionLevel}
	if err = self.load(); err != nil {
		self.Close()
		return nil, err
	}
	mlog.Printf2("volume/volume", "Open %+v", config)
	return self, nil
}

func (self *Volume) loadHeader(config *Configuration) error {
	var h header
	if b := self.meta.Get(headerKey); b != nil {
		if _, err := h.UnmarshalMsg(b); err != nil {
			return fmt.Errorf("volume: corrupt header: %w", err)
		}
		if h.Version != headerVersion {
			return fmt.Errorf("volume: unsupported version %d", h.Version)
		}
		config.SectorSize = h.SectorSize
		config.ChunkSize = h.ChunkSize
		config.DeviceSize = h.DeviceSize
		return config.validate()
	}
	if err := config.validate(); err != nil {
		return err
	}
	h = header{Version: headerVersion, SectorSize: config.SectorSize,
		ChunkSize: config.ChunkSize, DeviceSize: config.DeviceSize}
	b, _ := h.MarshalMsg(nil)
	self.meta.Set(headerKey, b)
	return nil
}

// load rebuilds the in-memory state: chunks from chunk items, and
// their free space from extent records.
func (self *Volume) load() (err error) {
	self.meta.Iterate([]byte{chunkPrefix}, func(key, value []byte) bool {
		var ci chunkItem
		if _, err = ci.UnmarshalMsg(value); err != nil {
			return false
		}
		self.chunks.Add(ci.Chunk())
		self.addLayout(ci.Offset, ci.Size)
		return true
	})
	if err != nil {
		return
	}
	self.meta.Iterate([]byte{extentPrefix}, func(key, value []byte) bool {
		var e extent.Extent
		if _, err = e.UnmarshalMsg(value); err != nil {
			return false
		}
		if self.ref(e.Address) == 1 {
			err = self.chunks.ReserveAt(e.Address, e.StoredBytes)
		}
		return err == nil
	})
	return
}

func (self *Volume) Close() {
	self.meta.Close()
	if self.dev != nil {
		self.dev.Close()
	}
}

func (self *Volume) Configuration() Configuration {
	return self.config
}

func (self *Volume) ref(address uint64) int {
	defer self.refLock.Locked()()
	self.refs[address]++
	return self.refs[address]
}

func (self *Volume) deref(address uint64) int {
	defer self.refLock.Locked()()
	n := self.refs[address] - 1
	if n < 0 {
		mlog.Panicf("volume: deref of unreferenced %#x", address)
	}
	if n == 0 {
		delete(self.refs, address)
	} else {
		self.refs[address] = n
	}
	return n
}

func (self *Volume) refCount(address uint64) int {
	defer self.refLock.Locked()()
	return self.refs[address]
}

func (self *Volume) addLayout(offset, size uint64) {
	defer self.layoutLock.Locked()()
	self.layout = append(self.layout, span{offset, size})
	sort.Slice(self.layout, func(i, j int) bool {
		return self.layout[i].offset < self.layout[j].offset
	})
}

func (self *Volume) removeLayout(offset uint64) {
	defer self.layoutLock.Locked()()
	for i, s := range self.layout {
		if s.offset == offset {
			self.layout = append(self.layout[:i], self.layout[i+1:]...)
			return
		}
	}
}

// findGap returns the first device offset with room for a chunk.
func (self *Volume) findGap() (uint64, bool) {
	defer self.layoutLock.Locked()()
	size := self.config.ChunkSize
	ofs := uint64(reservedBytes)
	for _, s := range self.layout {
		if s.offset >= ofs+size {
			break
		}
		ofs = util.U64Max(ofs, s.offset+s.size)
	}
	if ofs+size > self.config.DeviceSize {
		return 0, false
	}
	return ofs, true
}

// AllocChunk creates new chunk from free device space. It is called
// by the chunk manager with its index lock held. nil chunk means
// the device is full.
func (self *Volume) AllocChunk(t chunk.Type, rb *rollback.Log) (*chunk.Chunk, error) {
	ofs, ok := self.findGap()
	if !ok {
		mlog.Printf2("volume/volume", "AllocChunk %v: device full", t)
		return nil, nil
	}
	ci := chunkItem{Offset: ofs, Size: self.config.ChunkSize, Type: uint64(t)}
	b, _ := ci.MarshalMsg(nil)
	self.meta.Set(chunkKey(ofs), b)
	self.addLayout(ofs, ci.Size)
	c := ci.Chunk()
	rb.Add(rollback.KindChunkAllocated, c)
	mlog.Printf2("volume/volume", "AllocChunk %v", c)
	return c, nil
}

// Size returns the logical size of target.
func (self *Volume) Size(target uint64) uint64 {
	defer self.targets.Locked(target)()
	return self.size(target)
}

func (self *Volume) size(target uint64) uint64 {
	b := self.meta.Get(sizeKey(target))
	if b == nil {
		return 0
	}
	return util.BytesUint64(b)
}

func (self *Volume) setSize(target, size uint64) {
	if size == 0 {
		self.meta.Delete(sizeKey(target))
		return
	}
	self.meta.Set(sizeKey(target), util.Uint64Bytes(size))
}

type Stats struct {
	Configuration Configuration      `json:"configuration"`
	Chunks        []chunk.ChunkStats `json:"chunks"`
	Pool          []codec.TagStats   `json:"pool"`
	Extents       int                `json:"extents"`
	Payloads      int                `json:"payloads"`
	StoredBytes   uint64             `json:"stored_bytes"`
	LogicalBytes  uint64             `json:"logical_bytes"`

	// of the metadata directory, if any
	MetadataBytes  uint64 `json:"metadata_bytes"`
	AvailableBytes uint64 `json:"available_bytes"`
}

func (self *Volume) Stats() (st Stats) {
	st.Configuration = self.config
	st.Chunks = self.chunks.Stats()
	st.Pool = self.pool.Stats()
	if sr, ok := self.meta.(storage.SpaceReporter); ok {
		st.MetadataBytes = sr.GetBytesUsed()
		st.AvailableBytes = sr.GetBytesAvailable()
	}
	seen := make(map[uint64]bool)
	self.meta.Iterate([]byte{extentPrefix}, func(key, value []byte) bool {
		var e extent.Extent
		if _, err := e.UnmarshalMsg(value); err != nil {
			mlog.Panicf("volume: corrupt extent %x: %v", key, err)
		}
		st.Extents++
		st.LogicalBytes += e.NumBytes
		if !seen[e.Address] {
			seen[e.Address] = true
			st.Payloads++
			st.StoredBytes += e.StoredBytes
		}
		return true
	})
	return
}
