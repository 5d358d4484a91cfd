/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Apr 18 09:50:21 2018 mstenber
 * Last modified: Wed Apr 18 10:02:10 2018 mstenber
 * Edit time:     8 min
 *
 */

package extent

import (
	"errors"
	"testing"

	"github.com/glycerine/greenpack/msgp"
	"github.com/stvp/assert"

	"github.com/fingon/go-cexfs/codec"
)

func TestExtentMsg(t *testing.T) {
	t.Parallel()
	e := Extent{Target: 1, Offset: 1 << 40, NumBytes: 4096,
		DecodedOffset: 12, RamBytes: 8192,
		Compression: codec.CompressionType_ZLIB,
		Address:     0x10000, StoredBytes: 512}
	b, err := e.MarshalMsg(nil)
	assert.Nil(t, err)
	var e2 Extent
	rest, err := e2.UnmarshalMsg(b)
	assert.Nil(t, err)
	assert.Equal(t, len(rest), 0)
	assert.Equal(t, e2, e)

	_, err = e2.UnmarshalMsg(b[:len(b)-1])
	assert.NotEqual(t, err, nil)

	// records with wrong field count are rejected
	short := msgp.AppendArrayHeader(nil, extentFields-1)
	_, err = e2.UnmarshalMsg(short)
	assert.Equal(t, err, msgp.ArrayError{Wanted: extentFields, Got: extentFields - 1})
}

func TestExtentTrimmed(t *testing.T) {
	t.Parallel()
	e := Extent{Offset: 1000, NumBytes: 1000, DecodedOffset: 0, RamBytes: 1000}
	l := e.Trimmed(0, 1500)
	assert.Equal(t, l.Offset, uint64(1000))
	assert.Equal(t, l.NumBytes, uint64(500))
	assert.Equal(t, l.DecodedOffset, uint64(0))
	r := e.Trimmed(1200, 3000)
	assert.Equal(t, r.Offset, uint64(1200))
	assert.Equal(t, r.End(), uint64(2000))
	assert.Equal(t, r.DecodedOffset, uint64(200))
	m := e.Trimmed(1100, 1200)
	assert.Equal(t, m.DecodedOffset, uint64(100))
	assert.Equal(t, m.NumBytes, uint64(100))
	// original is untouched
	assert.Equal(t, e.NumBytes, uint64(1000))
}

func TestErrors(t *testing.T) {
	t.Parallel()
	cause := errors.New("cause")
	err := wrap(ErrInternal, cause)
	assert.True(t, errors.Is(err, ErrInternal))
	assert.True(t, !errors.Is(err, ErrUnsupported))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, wrap(ErrOutOfMemory, nil), error(ErrOutOfMemory))
}
