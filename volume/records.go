/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 19 15:44:40 2018 mstenber
 * Last modified: Fri Apr 20 10:40:02 2018 mstenber
 * Edit time:     31 min
 *
 */

package volume

import (
	"github.com/glycerine/greenpack/msgp"

	"github.com/fingon/go-cexfs/chunk"
	"github.com/fingon/go-cexfs/util"
)

// Metadata keys:
//
// - h -> header
// - c + chunk offset -> chunkItem
// - e + target + logical offset -> extent.Extent
// - i + target -> logical size
var headerKey = []byte("h")

const (
	chunkPrefix  = 'c'
	extentPrefix = 'e'
	sizePrefix   = 'i'
)

func chunkKey(offset uint64) []byte {
	return util.ConcatBytes([]byte{chunkPrefix}, util.Uint64Bytes(offset))
}

func extentTargetPrefix(target uint64) []byte {
	return util.ConcatBytes([]byte{extentPrefix}, util.Uint64Bytes(target))
}

func extentKey(target, offset uint64) []byte {
	return util.ConcatBytes(extentTargetPrefix(target), util.Uint64Bytes(offset))
}

func sizeKey(target uint64) []byte {
	return util.ConcatBytes([]byte{sizePrefix}, util.Uint64Bytes(target))
}

const headerVersion = 1

// header pins the geometry of the volume; it wins over the
// configuration on later opens.
type header struct {
	Version    uint64
	SectorSize uint64
	ChunkSize  uint64
	DeviceSize uint64
}

func (self *header) fields() []*uint64 {
	return []*uint64{&self.Version, &self.SectorSize, &self.ChunkSize, &self.DeviceSize}
}

func (self *header) MarshalMsg(b []byte) ([]byte, error) {
	return marshalUint64s(b, self.fields())
}

func (self *header) UnmarshalMsg(b []byte) ([]byte, error) {
	return unmarshalUint64s(b, self.fields())
}

type chunkItem struct {
	Offset uint64
	Size   uint64
	Type   uint64
}

func (self *chunkItem) fields() []*uint64 {
	return []*uint64{&self.Offset, &self.Size, &self.Type}
}

func (self *chunkItem) MarshalMsg(b []byte) ([]byte, error) {
	return marshalUint64s(b, self.fields())
}

func (self *chunkItem) UnmarshalMsg(b []byte) ([]byte, error) {
	return unmarshalUint64s(b, self.fields())
}

func (self *chunkItem) Chunk() *chunk.Chunk {
	return chunk.New(self.Offset, self.Size, chunk.Type(self.Type))
}

func marshalUint64s(b []byte, fields []*uint64) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, uint32(len(fields)))
	for _, p := range fields {
		b = msgp.AppendUint64(b, *p)
	}
	return b, nil
}

func unmarshalUint64s(b []byte, fields []*uint64) (o []byte, err error) {
	var nbs msgp.NilBitsStack
	var sz uint32
	sz, o, err = nbs.ReadArrayHeaderBytes(b)
	if err != nil {
		return
	}
	if int(sz) != len(fields) {
		return b, msgp.ArrayError{Wanted: uint32(len(fields)), Got: sz}
	}
	for _, p := range fields {
		*p, o, err = nbs.ReadUint64Bytes(o)
		if err != nil {
			return
		}
	}
	return
}
