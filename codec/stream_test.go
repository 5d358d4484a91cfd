/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Apr 16 15:40:12 2018 mstenber
 * Last modified: Tue Apr 17 13:22:40 2018 mstenber
 * Edit time:     48 min
 *
 */

package codec

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stvp/assert"

	"github.com/fingon/go-cexfs/util"
)

// deflateAll compresses p into buffer of size len(p)
func deflateAll(t *testing.T, pool *Pool, p []byte, level int) []byte {
	s := NewDeflater(pool, level)
	out := make([]byte, len(p))
	s.SetInput(p)
	s.SetOutput(out)
	assert.Nil(t, s.Init())
	st, err := s.Process(FlushFinish)
	assert.Nil(t, err)
	assert.Equal(t, st, StatusStreamEnd)
	assert.Equal(t, s.AvailIn(), 0)
	n := s.TotalOut()
	assert.Nil(t, s.End())
	return out[:n]
}

func inflateAll(pool *Pool, in []byte, size int) ([]byte, Status, error) {
	s := NewInflater(pool)
	out := make([]byte, size)
	s.SetInput(in)
	s.SetOutput(out)
	if err := s.Init(); err != nil {
		return nil, StatusError, err
	}
	for {
		st, err := s.Process(FlushNone)
		if err != nil || st == StatusBufError {
			s.End()
			return nil, st, err
		}
		if st == StatusStreamEnd {
			break
		}
	}
	return out[:s.TotalOut()], StatusStreamEnd, s.End()
}

func TestStreamRoundTrip(t *testing.T) {
	t.Parallel()
	pool := &Pool{}
	rng := util.GetSeededRng()
	for _, level := range []int{1, 3, 9} {
		t.Run(fmt.Sprintf("level%d", level), func(t *testing.T) {
			p := bytes.Repeat([]byte(compressible), 50)
			enc := deflateAll(t, pool, p, level)
			assert.True(t, len(enc) < len(p))
			dec, st, err := inflateAll(pool, enc, len(p))
			assert.Nil(t, err)
			assert.Equal(t, st, StatusStreamEnd)
			assert.Equal(t, dec, p)
		})
	}
	// Semi-random data still compresses a bit, and round-trips
	p := util.RandomBytes(rng, 1024)
	p = append(p, make([]byte, 8192)...)
	enc := deflateAll(t, pool, p, 3)
	dec, _, err := inflateAll(pool, enc, len(p))
	assert.Nil(t, err)
	assert.Equal(t, dec, p)
	assert.True(t, pool.Balanced())
}

func TestDeflateOutputExhausted(t *testing.T) {
	t.Parallel()
	pool := &Pool{}
	rng := util.GetSeededRng()
	p := util.RandomBytes(rng, 4096)
	s := NewDeflater(pool, 3)
	s.SetInput(p)
	s.SetOutput(make([]byte, len(p)))
	assert.Nil(t, s.Init())
	for s.AvailIn() > 0 && s.AvailOut() > 0 {
		st, err := s.Process(FlushFinish)
		assert.Nil(t, err)
		assert.NotEqual(t, st, StatusStreamEnd)
	}
	assert.Equal(t, s.AvailOut(), 0)
	st, err := s.Process(FlushFinish)
	assert.Nil(t, err)
	assert.Equal(t, st, StatusBufError)
	assert.Nil(t, s.End())
	assert.Equal(t, s.State(), StateEnded)
	assert.True(t, pool.Balanced())
}

func TestStreamStates(t *testing.T) {
	t.Parallel()
	pool := &Pool{}

	s := NewDeflater(pool, 42)
	err := s.Init()
	var cerr *CodecError
	assert.True(t, errors.As(err, &cerr))
	assert.Equal(t, cerr.Op, "init")
	assert.Equal(t, s.State(), StateUninitialized)

	s = NewDeflater(pool, 3)
	_, err = s.Process(FlushFinish)
	assert.True(t, err != nil)
	assert.Nil(t, s.Init())
	assert.True(t, s.Init() != nil)
	assert.Nil(t, s.End())
	assert.True(t, s.End() != nil)
	_, err = s.Process(FlushFinish)
	assert.True(t, err != nil)

	// Inflate without any Process has no codec state to release
	s = NewInflater(pool)
	assert.Nil(t, s.Init())
	assert.Nil(t, s.End())
	assert.True(t, pool.Balanced())
}

func TestInflateFailures(t *testing.T) {
	t.Parallel()
	pool := &Pool{}
	p := bytes.Repeat([]byte(compressible), 10)
	enc := deflateAll(t, pool, p, 3)

	// garbage header
	_, st, err := inflateAll(pool, []byte("this is not zlib at all"), len(p))
	assert.True(t, err != nil)
	assert.Equal(t, st, StatusError)

	// corrupt body
	bad := append([]byte{}, enc...)
	for i := 2; i < len(bad)-4; i++ {
		bad[i] ^= 0x55
	}
	_, st, err = inflateAll(pool, bad, len(p))
	assert.True(t, err != nil || st == StatusBufError)

	// truncated
	_, _, err = inflateAll(pool, enc[:len(enc)/2], len(p))
	assert.True(t, err != nil)

	// output too small
	_, st, err = inflateAll(pool, enc, len(p)-1)
	assert.Nil(t, err)
	assert.Equal(t, st, StatusBufError)

	// exact fit, and larger output are both fine
	dec, _, err := inflateAll(pool, enc, len(p))
	assert.Nil(t, err)
	assert.Equal(t, dec, p)
	dec, _, err = inflateAll(pool, enc, len(p)+100)
	assert.Nil(t, err)
	assert.Equal(t, dec, p)
	assert.True(t, pool.Balanced())
}

func benchDeflate(pool *Pool, p []byte) []byte {
	s := NewDeflater(pool, 3)
	out := make([]byte, len(p))
	s.SetInput(p)
	s.SetOutput(out)
	s.Init()
	s.Process(FlushFinish)
	s.End()
	return out[:s.TotalOut()]
}

func BenchmarkStream(b *testing.B) {
	pool := &Pool{}
	p := bytes.Repeat([]byte(compressible), 1000)
	b.Run("Deflate", func(b *testing.B) {
		b.SetBytes(int64(len(p)))
		for i := 0; i < b.N; i++ {
			benchDeflate(pool, p)
		}
	})
	enc := benchDeflate(pool, p)
	b.Run("Inflate", func(b *testing.B) {
		b.SetBytes(int64(len(p)))
		for i := 0; i < b.N; i++ {
			inflateAll(pool, enc, len(p))
		}
	})
}
