/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 11:14:11 2018 mstenber
 * Last modified: Thu Apr 19 13:02:41 2018 mstenber
 * Edit time:     21 min
 *
 */

// storage provides the metadata key-value backends of a volume
// (chunk items, extent records, sizes). Extent payloads themselves
// live on the device, not here.
//
// Backends treat I/O failure as fatal, and panic; there is nothing
// sensible the volume could do about a broken metadata store.
package storage

import "github.com/fingon/go-cexfs/codec"

type BackendConfiguration struct {
	// Directory is where on-disk backends keep their files.
	Directory string

	// Codec, if set, transforms every value on its way in and out.
	Codec codec.Codec
}

// IterateCallback sees key and value of one item; returning false
// stops the iteration. The slices belong to the callback.
type IterateCallback func(key, value []byte) bool

// Backend is ordered key-value store.
type Backend interface {
	// Init makes the instance actually useful
	Init(config BackendConfiguration)

	// Close the backend
	Close()

	// Get returns the value, or nil if the key is not present.
	Get(key []byte) []byte

	// Set sets the key to value, replacing whatever was there.
	Set(key, value []byte)

	// Delete removes the key; missing key is not an error.
	Delete(key []byte)

	// Iterate calls cb for every key with the given prefix, in
	// ascending key order. The backend may be modified from within
	// the callback; such changes may or may not be seen by the
	// ongoing iteration.
	Iterate(prefix []byte, cb IterateCallback)
}
