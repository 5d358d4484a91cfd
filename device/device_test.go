/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Apr 19 15:01:02 2018 mstenber
 * Last modified: Thu Apr 19 15:20:40 2018 mstenber
 * Edit time:     11 min
 *
 */

package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stvp/assert"
)

func ProdDevice(t *testing.T, dev Device) {
	assert.Equal(t, dev.Size(), uint64(65536))
	n, err := dev.WriteAt([]byte("hello"), 1000)
	assert.Nil(t, err)
	assert.Equal(t, n, 5)
	b := make([]byte, 7)
	_, err = dev.ReadAt(b, 999)
	assert.Nil(t, err)
	assert.Equal(t, b, []byte("\x00hello\x00"))

	_, err = dev.WriteAt([]byte("x"), 65536)
	assert.NotEqual(t, err, nil)
	_, err = dev.ReadAt(b, 65530)
	assert.NotEqual(t, err, nil)
	_, err = dev.ReadAt(b, -1)
	assert.NotEqual(t, err, nil)
	assert.Nil(t, dev.Sync())
}

func TestMemoryDevice(t *testing.T) {
	t.Parallel()
	dev := NewMemoryDevice(65536)
	ProdDevice(t, dev)
	assert.Nil(t, dev.Close())
}

func TestFileDevice(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "cexfs-device")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "dev")
	dev, err := NewFileDevice(path, 65536)
	assert.Nil(t, err)
	ProdDevice(t, dev)
	assert.Nil(t, dev.Close())

	dev, err = NewFileDevice(path, 65536)
	assert.Nil(t, err)
	b := make([]byte, 5)
	_, err = dev.ReadAt(b, 1000)
	assert.Nil(t, err)
	assert.Equal(t, string(b), "hello")
	assert.Nil(t, dev.Close())

	_, err = NewFileDevice(filepath.Join(dir, "nonexistent", "dev"), 10)
	assert.NotEqual(t, err, nil)
}
