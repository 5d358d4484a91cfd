/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 19 14:40:21 2018 mstenber
 * Last modified: Thu Apr 19 15:22:03 2018 mstenber
 * Edit time:     36 min
 *
 */

// device is the raw block storage a volume carves into chunks;
// either memory or a single (sparse) file.
package device

import (
	"fmt"
	"io"
	"os"

	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/util"
)

type Device interface {
	io.ReaderAt
	io.WriterAt

	// Size is the fixed capacity in bytes.
	Size() uint64

	Sync() error
	Close() error
}

func checkRange(dev Device, n int, off int64) error {
	if off < 0 || uint64(off)+uint64(n) > dev.Size() {
		return fmt.Errorf("device: access %d+%d beyond size %d", off, n, dev.Size())
	}
	return nil
}

type memoryDevice struct {
	lock util.MutexLocked
	b    []byte
}

var _ Device = &memoryDevice{}

func NewMemoryDevice(size uint64) Device {
	return &memoryDevice{b: make([]byte, size)}
}

func (self *memoryDevice) Size() uint64 {
	return uint64(len(self.b))
}

func (self *memoryDevice) ReadAt(p []byte, off int64) (int, error) {
	if err := checkRange(self, len(p), off); err != nil {
		return 0, err
	}
	defer self.lock.Locked()()
	return copy(p, self.b[off:]), nil
}

func (self *memoryDevice) WriteAt(p []byte, off int64) (int, error) {
	if err := checkRange(self, len(p), off); err != nil {
		return 0, err
	}
	defer self.lock.Locked()()
	mlog.Printf2("device/device", "md.WriteAt %#x+%d", off, len(p))
	return copy(self.b[off:], p), nil
}

func (self *memoryDevice) Sync() error {
	return nil
}

func (self *memoryDevice) Close() error {
	return nil
}

type fileDevice struct {
	f    *os.File
	path string
	size uint64
}

var _ Device = &fileDevice{}

// NewFileDevice opens (or creates) the file at path as device of the
// given size. The file is sparse; existing content is kept.
func NewFileDevice(path string, size uint64) (Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if uint64(fi.Size()) < size {
		if err = f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, err
		}
	}
	mlog.Printf2("device/device", "NewFileDevice %s %d", path, size)
	return &fileDevice{f: f, path: path, size: size}, nil
}

func (self *fileDevice) Size() uint64 {
	return self.size
}

func (self *fileDevice) ReadAt(p []byte, off int64) (int, error) {
	if err := checkRange(self, len(p), off); err != nil {
		return 0, err
	}
	return self.f.ReadAt(p, off)
}

func (self *fileDevice) WriteAt(p []byte, off int64) (int, error) {
	if err := checkRange(self, len(p), off); err != nil {
		return 0, err
	}
	mlog.Printf2("device/device", "fd.WriteAt %#x+%d", off, len(p))
	return self.f.WriteAt(p, off)
}

func (self *fileDevice) Sync() error {
	return self.f.Sync()
}

func (self *fileDevice) Close() error {
	return self.f.Close()
}
