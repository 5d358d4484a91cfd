/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Apr 18 09:10:31 2018 mstenber
 * Last modified: Thu Apr 19 10:04:12 2018 mstenber
 * Edit time:     38 min
 *
 */

// extent is the data path between logical file ranges and stored
// (possibly zlib compressed) payloads:
//
// - Extent is the on-disk record describing one payload
//
// - Decompress/Decode turn stored payloads back into data
//
// - Writer decides whether to store data compressed or raw, and
// hands the result to a Placer
package extent

import (
	"fmt"

	"github.com/glycerine/greenpack/msgp"

	"github.com/fingon/go-cexfs/codec"
)

// Extent maps logical range [Offset, Offset+NumBytes) of Target to
// stored payload at device Address.
//
// The payload decodes to RamBytes bytes, and the range starts
// DecodedOffset bytes into the decoded data; trimming an extent
// changes only Offset, NumBytes and DecodedOffset.
type Extent struct {
	Target        uint64
	Offset        uint64
	NumBytes      uint64
	DecodedOffset uint64
	RamBytes      uint64
	Compression   codec.CompressionType
	Address       uint64

	// StoredBytes is the on-disk size; sector multiple.
	StoredBytes uint64
}

const extentFields = 8

func (self *Extent) End() uint64 {
	return self.Offset + self.NumBytes
}

func (self Extent) String() string {
	return fmt.Sprintf("extent{%d@%d+%d dec:%d/%d %v @%#x+%d}",
		self.Target, self.Offset, self.NumBytes,
		self.DecodedOffset, self.RamBytes, self.Compression,
		self.Address, self.StoredBytes)
}

// Trimmed returns copy of the extent restricted to [start, end),
// which must overlap it.
func (self Extent) Trimmed(start, end uint64) Extent {
	if start > self.Offset {
		delta := start - self.Offset
		self.Offset = start
		self.DecodedOffset += delta
		self.NumBytes -= delta
	}
	if end < self.End() {
		self.NumBytes = end - self.Offset
	}
	return self
}

func (self *Extent) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, extentFields)
	b = msgp.AppendUint64(b, self.Target)
	b = msgp.AppendUint64(b, self.Offset)
	b = msgp.AppendUint64(b, self.NumBytes)
	b = msgp.AppendUint64(b, self.DecodedOffset)
	b = msgp.AppendUint64(b, self.RamBytes)
	b = msgp.AppendUint8(b, uint8(self.Compression))
	b = msgp.AppendUint64(b, self.Address)
	b = msgp.AppendUint64(b, self.StoredBytes)
	return b, nil
}

func (self *Extent) UnmarshalMsg(b []byte) (o []byte, err error) {
	var nbs msgp.NilBitsStack
	var sz uint32
	sz, o, err = nbs.ReadArrayHeaderBytes(b)
	if err != nil {
		return
	}
	if sz != extentFields {
		return b, msgp.ArrayError{Wanted: extentFields, Got: sz}
	}
	for _, p := range []*uint64{&self.Target, &self.Offset, &self.NumBytes,
		&self.DecodedOffset, &self.RamBytes} {
		*p, o, err = nbs.ReadUint64Bytes(o)
		if err != nil {
			return
		}
	}
	var ct uint8
	ct, o, err = nbs.ReadUint8Bytes(o)
	if err != nil {
		return
	}
	self.Compression = codec.CompressionType(ct)
	for _, p := range []*uint64{&self.Address, &self.StoredBytes} {
		*p, o, err = nbs.ReadUint64Bytes(o)
		if err != nil {
			return
		}
	}
	return
}
