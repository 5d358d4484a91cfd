/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Apr 20 09:12:02 2018 mstenber
 * Last modified: Mon Apr 23 12:10:31 2018 mstenber
 * Edit time:     49 min
 *
 */

package volume

import (
	"sync"

	"github.com/fingon/go-cexfs/extent"
	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/util"
)

// Read returns up to length bytes of target starting at offset; the
// result is short only at the end of target. Holes read as zeros.
func (self *Volume) Read(target, offset, length uint64) ([]byte, error) {
	defer self.targets.Locked(target)()
	return self.read(target, offset, length, true)
}

// readExtent decodes e, and copies its part within [offset,
// offset+len(out)) to out.
func (self *Volume) readExtent(e *extent.Extent, offset uint64, out []byte) error {
	payload := make([]byte, e.StoredBytes)
	if _, err := self.dev.ReadAt(payload, int64(e.Address)); err != nil {
		return err
	}
	data, err := extent.Decode(self.pool, e, payload)
	if err != nil {
		mlog.Printf2("volume/read", "Decode %v failed: %v", *e, err)
		return err
	}
	// data covers [e.Offset, e.End())
	end := offset + uint64(len(out))
	from := util.U64Max(e.Offset, offset)
	to := util.U64Min(e.End(), end)
	copy(out[from-offset:to-offset], data[from-e.Offset:to-e.Offset])
	return nil
}

// read decodes the overlapping extents in parallel; they never
// overlap each other, so neither do their parts of the output.
func (self *Volume) read(target, offset, length uint64, clamp bool) ([]byte, error) {
	if clamp {
		size := self.size(target)
		if offset >= size {
			return []byte{}, nil
		}
		length = util.U64Min(length, size-offset)
	}
	out := make([]byte, length)
	exts := self.overlapping(target, offset, offset+length)
	if len(exts) == 1 {
		if err := self.readExtent(&exts[0], offset, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var wg sync.WaitGroup
	var lock util.MutexLocked
	var firstErr error
	for i := range exts {
		e := &exts[i]
		self.decoders.Go(&wg, func() {
			if err := self.readExtent(e, offset, out); err != nil {
				defer lock.Locked()()
				if firstErr == nil {
					firstErr = err
				}
			}
		})
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
