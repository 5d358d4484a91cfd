/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 15:55:15 2018 mstenber
 * Last modified: Mon Apr 23 11:02:31 2018 mstenber
 * Edit time:     41 min
 *
 */

package storage

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/fingon/go-cexfs/mlog"
)

// SpaceReporter is implemented by backends that live in a directory.
type SpaceReporter interface {
	// GetBytesAvailable returns number of bytes available.
	GetBytesAvailable() uint64

	// GetBytesUsed returns number of bytes used.
	GetBytesUsed() uint64
}

// DirectoryBackendBase is embedded by on-disk backends.
type DirectoryBackendBase struct {
	Dir string
}

var _ SpaceReporter = &DirectoryBackendBase{}

func (self *DirectoryBackendBase) Init(config BackendConfiguration) {
	self.Dir = config.Directory
	if err := os.MkdirAll(self.Dir, 0700); err != nil {
		mlog.Panicf("Unable to create %s: %v", self.Dir, err)
	}
}

func (self *DirectoryBackendBase) GetBytesAvailable() uint64 {
	var st unix.Statfs_t
	err := unix.Statfs(self.Dir, &st)
	if err != nil {
		return 0
	}
	r := uint64(st.Bsize) * st.Bavail
	mlog.Printf2("storage/directory", "ba.GetBytesAvailable %v (%v * %v)", r, st.Bsize, st.Bavail)
	return r
}

func (self *DirectoryBackendBase) GetBytesUsed() (sum uint64) {
	filepath.Walk(self.Dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			sum += uint64(info.Size())
		}
		return nil
	})
	return sum
}
