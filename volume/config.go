/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 19 15:30:12 2018 mstenber
 * Last modified: Fri Apr 20 10:12:30 2018 mstenber
 * Edit time:     22 min
 *
 */

package volume

import (
	"fmt"

	"github.com/klauspost/compress/zlib"

	"github.com/fingon/go-cexfs/extent"
	"github.com/fingon/go-cexfs/util"
)

const (
	DefaultSectorSize    = 4096
	DefaultChunkSize     = 64 << 20
	DefaultDeviceSize    = 1 << 30
	DefaultMaxExtentSize = 128 << 10
	DefaultBackendName   = "inmemory"

	// reservedBytes at the start of the device are never part of
	// a chunk.
	reservedBytes = 64 << 10
)

// Configuration of a volume. Zero values mean defaults.
type Configuration struct {
	// Directory holds the metadata database and the device file of
	// persistent backends.
	Directory string

	// BackendName is one of storage/factory.List().
	BackendName string

	SectorSize    uint64
	ChunkSize     uint64
	DeviceSize    uint64
	MaxExtentSize uint64

	// CompressionLevel is the zlib level of data extents, from
	// zlib.BestSpeed to zlib.BestCompression; 0 means
	// extent.DefaultLevel. Uncompressed storage is NoCompress.
	CompressionLevel int

	// NoCompress stores all data raw.
	NoCompress bool

	// MemoryLimit bounds the working memory of the data path in
	// bytes (0 = unlimited).
	MemoryLimit int64
}

func (self Configuration) withDefaults() Configuration {
	if self.BackendName == "" {
		self.BackendName = DefaultBackendName
	}
	if self.SectorSize == 0 {
		self.SectorSize = DefaultSectorSize
	}
	if self.ChunkSize == 0 {
		self.ChunkSize = DefaultChunkSize
	}
	if self.DeviceSize == 0 {
		self.DeviceSize = DefaultDeviceSize
	}
	if self.MaxExtentSize == 0 {
		self.MaxExtentSize = DefaultMaxExtentSize
	}
	if self.CompressionLevel == 0 {
		self.CompressionLevel = extent.DefaultLevel
	}
	return self
}

func (self *Configuration) validate() error {
	switch {
	case !util.IsPowerOfTwo(self.SectorSize) || self.SectorSize > reservedBytes:
		return fmt.Errorf("volume: invalid sector size %d", self.SectorSize)
	case self.ChunkSize%self.SectorSize != 0:
		return fmt.Errorf("volume: chunk size %d not multiple of sector size", self.ChunkSize)
	case self.MaxExtentSize%self.SectorSize != 0 || self.MaxExtentSize > self.ChunkSize:
		return fmt.Errorf("volume: invalid maximum extent size %d", self.MaxExtentSize)
	case self.DeviceSize < reservedBytes+self.ChunkSize:
		return fmt.Errorf("volume: device size %d too small for a chunk", self.DeviceSize)
	case self.CompressionLevel < zlib.BestSpeed || self.CompressionLevel > zlib.BestCompression:
		return fmt.Errorf("volume: invalid compression level %d", self.CompressionLevel)
	case self.MemoryLimit < 0:
		return fmt.Errorf("volume: invalid memory limit %d", self.MemoryLimit)
	}
	return nil
}
