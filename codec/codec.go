/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 24 16:42:12 2017 mstenber
 * Last modified: Tue Apr 17 12:31:04 2018 mstenber
 * Edit time:     81 min
 *
 */

// codec library covers the byte transformations of the extent I/O
// path:
//
// - Stream wraps zlib inflate/deflate with explicit buffer
// exhaustion semantics; extent payloads use it
//
// - Pool is the tagged allocator behind both working buffers and
// stream state
//
// - Codec (and CodecChain) transform whole metadata values, which
// the storage backends use to keep records small
package codec

import (
	"fmt"

	"github.com/golang/snappy"
)

// Codec is single transformation of byte slices.
type Codec interface {
	DecodeBytes(data []byte) (ret []byte, err error)
	EncodeBytes(data []byte) (ret []byte, err error)
}

const (
	valuePlain  byte = 1
	valueSnappy byte = 2
)

// CompressingCodec snappy-compresses values. If the result does not
// improve, the value is stored plain (at cost of 1 byte).
type CompressingCodec struct {
}

var _ Codec = &CompressingCodec{}

func (self *CompressingCodec) DecodeBytes(data []byte) (ret []byte, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("codec: empty value")
	}
	switch data[0] {
	case valuePlain:
		ret = data[1:]
	case valueSnappy:
		ret, err = snappy.Decode(nil, data[1:])
	default:
		err = fmt.Errorf("codec: unknown value type %d", data[0])
	}
	return
}

func (self *CompressingCodec) EncodeBytes(data []byte) (ret []byte, err error) {
	buf := make([]byte, 1+snappy.MaxEncodedLen(len(data)))
	enc := snappy.Encode(buf[1:], data)
	if len(enc) < len(data) {
		buf[0] = valueSnappy
		return buf[:1+len(enc)], nil
	}
	ret = make([]byte, 1+len(data))
	ret[0] = valuePlain
	copy(ret[1:], data)
	return ret, nil
}

// CodecChain combines multiple Codecs. The zero value is a no-op.
type CodecChain struct {
	codecs []Codec
}

// Init sets up the chain. Codecs are given in decoding order.
func (self CodecChain) Init(codecs ...Codec) *CodecChain {
	self.codecs = codecs
	return &self
}

func (self *CodecChain) DecodeBytes(data []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.codecs {
		ret, err = c.DecodeBytes(ret)
		if err != nil {
			return
		}
	}
	return
}

func (self *CodecChain) EncodeBytes(data []byte) (ret []byte, err error) {
	ret = data
	for i := len(self.codecs) - 1; i >= 0; i-- {
		ret, err = self.codecs[i].EncodeBytes(ret)
		if err != nil {
			return
		}
	}
	return
}
