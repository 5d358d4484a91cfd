/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 12:22:52 2018 mstenber
 * Last modified: Thu Apr 19 14:10:40 2018 mstenber
 * Edit time:     34 min
 *
 */

package factory

import (
	"fmt"
	"sort"

	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/storage"
	"github.com/fingon/go-cexfs/storage/badger"
	"github.com/fingon/go-cexfs/storage/bolt"
	"github.com/fingon/go-cexfs/storage/file"
	"github.com/fingon/go-cexfs/storage/inmemory"
)

type factoryCallback func() storage.Backend

var backendFactories = map[string]factoryCallback{
	"inmemory": func() storage.Backend {
		return inmemory.NewInMemoryBackend()
	},
	"badger": func() storage.Backend {
		return badger.NewBadgerBackend()
	},
	"bolt": func() storage.Backend {
		return bolt.NewBoltBackend()
	},
	"file": func() storage.Backend {
		return file.NewFileBackend()
	}}

// List returns the backend names in sorted order.
func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k, _ := range backendFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsPersistent reports whether the backend keeps data over Close.
func IsPersistent(name string) bool {
	return name != "inmemory"
}

func New(name, dir string) (storage.Backend, error) {
	var config storage.BackendConfiguration
	config.Directory = dir
	return NewWithConfig(name, config)
}

// NewWithConfig creates and initializes the named backend. If the
// configuration has Codec, the backend is wrapped with it.
func NewWithConfig(name string, config storage.BackendConfiguration) (storage.Backend, error) {
	mlog.Printf2("storage/factory/factory", "f.NewWithConfig %v %v", name, config.Directory)
	f, ok := backendFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (known: %v)", name, List())
	}
	be := f()
	if config.Codec != nil {
		be = storage.NewCodecBackend(be, config.Codec)
	}
	be.Init(config)
	return be, nil
}
