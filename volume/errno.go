/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Apr 20 11:50:12 2018 mstenber
 * Last modified: Fri Apr 20 12:02:40 2018 mstenber
 * Edit time:     6 min
 *
 */

package volume

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/fingon/go-cexfs/chunk"
	"github.com/fingon/go-cexfs/codec"
	"github.com/fingon/go-cexfs/extent"
)

// Errno maps error of a volume operation to the status reported to
// the outside world. nil maps to 0.
func Errno(err error) unix.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, extent.ErrUnsupported):
		return unix.ENOTSUP
	case errors.Is(err, extent.ErrOutOfMemory), errors.Is(err, codec.ErrPoolExhausted):
		return unix.ENOMEM
	case errors.Is(err, chunk.ErrDiskFull):
		return unix.ENOSPC
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EIO
}
