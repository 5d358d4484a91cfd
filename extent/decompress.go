/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Apr 18 09:31:50 2018 mstenber
 * Last modified: Thu Apr 19 10:21:33 2018 mstenber
 * Edit time:     29 min
 *
 */

package extent

import (
	"errors"
	"fmt"

	"github.com/fingon/go-cexfs/codec"
	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/util"
)

var errNoProgress = errors.New("no progress; output buffer too small or input truncated")

// Decompress decodes the whole of in to out, whose capacity must be
// the decoded length. If the decoded data is shorter, the rest of out
// is zeroed. On failure the contents of out are undefined.
func Decompress(pool *codec.Pool, ct codec.CompressionType, in, out []byte) error {
	if ct != codec.CompressionType_ZLIB {
		return wrap(ErrUnsupported, fmt.Errorf("%v", ct))
	}
	s := codec.NewInflater(pool)
	if err := s.Init(); err != nil {
		return wrap(ErrInternal, err)
	}
	s.SetInput(in)
	s.SetOutput(out)
	for {
		st, err := s.Process(codec.FlushNone)
		if err == nil && st == codec.StatusBufError {
			err = errNoProgress
		}
		if err != nil {
			mlog.Printf2("extent/decompress", "Decompress failed after %d: %v", s.TotalOut(), err)
			s.End()
			return wrap(ErrInternal, err)
		}
		if st == codec.StatusStreamEnd {
			break
		}
	}
	n := s.TotalOut()
	if err := s.End(); err != nil {
		return wrap(ErrInternal, err)
	}
	util.ZeroBytes(out[n:])
	mlog.Printf2("extent/decompress", "Decompress %d -> %d/%d", len(in), n, len(out))
	return nil
}

// Decode returns the logical bytes of ext, given its stored payload.
func Decode(pool *codec.Pool, ext *Extent, payload []byte) ([]byte, error) {
	if ext.DecodedOffset+ext.NumBytes > ext.RamBytes {
		return nil, wrap(ErrInternal, fmt.Errorf("%v out of range", *ext))
	}
	switch ext.Compression {
	case codec.CompressionType_NONE:
		if uint64(len(payload)) < ext.DecodedOffset+ext.NumBytes {
			return nil, wrap(ErrInternal, fmt.Errorf("short payload %d for %v", len(payload), *ext))
		}
		return append([]byte(nil), payload[ext.DecodedOffset:ext.DecodedOffset+ext.NumBytes]...), nil
	case codec.CompressionType_ZLIB:
	default:
		return nil, wrap(ErrUnsupported, fmt.Errorf("%v", ext.Compression))
	}
	out, err := pool.Alloc(codec.TagRead, int(ext.RamBytes))
	if err != nil {
		return nil, wrap(ErrOutOfMemory, err)
	}
	defer pool.Free(codec.TagRead, out)
	if err = Decompress(pool, ext.Compression, payload, out); err != nil {
		return nil, err
	}
	return append([]byte(nil), out[ext.DecodedOffset:ext.DecodedOffset+ext.NumBytes]...), nil
}
