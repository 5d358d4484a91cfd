/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan  4 09:55:12 2018 mstenber
 * Last modified: Mon Apr 23 11:40:02 2018 mstenber
 * Edit time:     119 min
 *
 */

package file

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/storage"
)

// fileBackend stores every item in its own file.
//
// Name encoding: meta/ has one subdirectory per first key byte (hex),
// and within it files named with the hex of the rest of the key.
// Lowercase hex sorts like the raw bytes, so directory listings
// come out in key order.
//
// Values are written to a temporary file and renamed in place.
const metaDir = "meta"

type fileBackend struct {
	storage.DirectoryBackendBase
}

var _ storage.Backend = &fileBackend{}

func NewFileBackend() storage.Backend {
	return &fileBackend{}
}

func (self *fileBackend) Init(config storage.BackendConfiguration) {
	(&self.DirectoryBackendBase).Init(config)
	if err := os.MkdirAll(filepath.Join(self.Dir, metaDir), 0700); err != nil {
		log.Panic(err)
	}
}

func (self *fileBackend) Close() {
}

func (self *fileBackend) path(key []byte) (dir string, full string) {
	if len(key) == 0 {
		log.Panic("empty key")
	}
	dir = filepath.Join(self.Dir, metaDir, fmt.Sprintf("%02x", key[0]))
	full = filepath.Join(dir, "k"+hex.EncodeToString(key[1:]))
	return
}

func (self *fileBackend) Get(key []byte) []byte {
	_, path := self.path(key)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		log.Panic(err)
	}
	mlog.Printf2("storage/file/file", "fb.Get %x (%d b)", key, len(b))
	return b
}

func (self *fileBackend) Set(key, value []byte) {
	dir, path := self.path(key)
	if err := os.MkdirAll(dir, 0700); err != nil {
		log.Panic(err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0600); err != nil {
		log.Panic(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Panic(err)
	}
	mlog.Printf2("storage/file/file", "fb.Set %x to %v", key, path)
}

func (self *fileBackend) Delete(key []byte) {
	_, path := self.path(key)
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		log.Panic(err)
	}
	mlog.Printf2("storage/file/file", "fb.Delete %x", key)
}

func (self *fileBackend) Iterate(prefix []byte, cb storage.IterateCallback) {
	top := filepath.Join(self.Dir, metaDir)
	dirs, err := os.ReadDir(top)
	if err != nil {
		log.Panic(err)
	}
	for _, d := range dirs {
		first, err := hex.DecodeString(d.Name())
		if err != nil || len(first) != 1 {
			continue
		}
		if len(prefix) > 0 && first[0] != prefix[0] {
			continue
		}
		files, err := os.ReadDir(filepath.Join(top, d.Name()))
		if err != nil {
			log.Panic(err)
		}
		for _, f := range files {
			n := f.Name()
			if !strings.HasPrefix(n, "k") || strings.HasSuffix(n, ".tmp") {
				continue
			}
			rest, err := hex.DecodeString(n[1:])
			if err != nil {
				continue
			}
			key := append([]byte{first[0]}, rest...)
			if !bytes.HasPrefix(key, prefix) {
				continue
			}
			value := self.Get(key)
			if value == nil {
				// deleted meanwhile
				continue
			}
			if !cb(key, value) {
				return
			}
		}
	}
}
