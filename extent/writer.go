/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Apr 18 10:02:40 2018 mstenber
 * Last modified: Thu Apr 19 11:14:02 2018 mstenber
 * Edit time:     64 min
 *
 */

package extent

import (
	"fmt"

	"github.com/fingon/go-cexfs/codec"
	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/rollback"
	"github.com/fingon/go-cexfs/util"
)

// DefaultLevel is moderate; higher levels cost a lot more CPU for
// little gain on typical file data.
const DefaultLevel = 3

// Exciser removes (or trims) whatever extents cover [start, end) of
// target, recording the changes in rb.
type Exciser func(target, start, end uint64, rb *rollback.Log) error

// Placer stores payload for [start, start+original) of target. The
// payload is StoredBytes long; it belongs to the caller, and must
// not be retained after Placer returns.
type Placer func(target, start uint64, payload []byte, d Decision, rb *rollback.Log) error

// Decision is the outcome of the compression policy.
type Decision struct {
	Compression codec.CompressionType

	// StoredBytes is the length of the payload to store.
	StoredBytes uint64

	// OriginalBytes is the logical length (end - start).
	OriginalBytes uint64

	// CompressedBytes is the real deflate output length; the
	// payload is zero padded from there to StoredBytes.
	CompressedBytes uint64

	// OutLeft is the unused working buffer at decision time.
	OutLeft uint64
}

// decide applies the policy: compression is used only if it saves at
// least one full sector.
func decide(original, compressed, sector uint64) Decision {
	d := Decision{OriginalBytes: original, CompressedBytes: compressed,
		OutLeft: original - compressed}
	if d.OutLeft < sector {
		d.Compression = codec.CompressionType_NONE
		d.StoredBytes = original
		d.CompressedBytes = original
		return d
	}
	d.Compression = codec.CompressionType_ZLIB
	d.StoredBytes = util.AlignUp(compressed, sector)
	return d
}

// Writer is the compressed write path of a volume.
type Writer struct {
	Pool       *codec.Pool
	Excise     Exciser
	Place      Placer
	SectorSize uint64

	// Level is the zlib level; 0 means DefaultLevel.
	Level int

	// OnDecision, if set, sees every decision before placement.
	OnDecision func(d Decision)
}

func (self *Writer) level() int {
	if self.Level == 0 {
		return DefaultLevel
	}
	return self.Level
}

// deflate compresses data into buf. compressed is the real output
// length; if the output did not fit, it is len(buf).
func (self *Writer) deflate(data, buf []byte) (compressed int, err error) {
	s := codec.NewDeflater(self.Pool, self.level())
	if err = s.Init(); err != nil {
		return 0, wrap(ErrInternal, err)
	}
	s.SetInput(data)
	s.SetOutput(buf)
	for {
		st, err := s.Process(codec.FlushFinish)
		if err != nil {
			// The stream is abandoned as-is; End is not
			// called on fatal process errors.
			return 0, wrap(ErrInternal, err)
		}
		if st != codec.StatusOK || s.AvailOut() == 0 || s.AvailIn() == 0 {
			break
		}
	}
	compressed = s.TotalOut()
	if err = s.End(); err != nil {
		return 0, wrap(ErrInternal, err)
	}
	return compressed, nil
}

// WriteCompressed stores data as the new contents of [start, end) of
// target, compressed if that saves at least a sector. Whatever
// covered the range before is excised first.
func (self *Writer) WriteCompressed(target, start, end uint64, data []byte, rb *rollback.Log) error {
	length := end - start
	if end <= start || uint64(len(data)) < length {
		return fmt.Errorf("extent: invalid write [%d,%d) with %d bytes", start, end, len(data))
	}
	if !util.IsPowerOfTwo(self.SectorSize) {
		return fmt.Errorf("extent: invalid sector size %d", self.SectorSize)
	}
	data = data[:length]
	buf, err := self.Pool.Alloc(codec.TagExtent, int(length))
	if err != nil {
		return wrap(ErrOutOfMemory, err)
	}
	defer self.Pool.Free(codec.TagExtent, buf)

	err = self.Excise(target, start, end, rb)
	if err != nil {
		return err
	}

	compressed, err := self.deflate(data, buf)
	if err != nil {
		return err
	}
	d := decide(length, uint64(compressed), self.SectorSize)
	mlog.Printf2("extent/writer", "WriteCompressed %d [%d,%d) -> %v %d/%d",
		target, start, end, d.Compression, d.CompressedBytes, d.StoredBytes)
	if self.OnDecision != nil {
		self.OnDecision(d)
	}
	payload := data
	if d.Compression == codec.CompressionType_ZLIB {
		payload = buf[:d.StoredBytes]
		util.ZeroBytes(payload[d.CompressedBytes:])
	}
	return self.Place(target, start, payload, d, rb)
}
