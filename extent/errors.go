/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Apr 18 09:02:11 2018 mstenber
 * Last modified: Wed Apr 18 09:30:45 2018 mstenber
 * Edit time:     12 min
 *
 */

package extent

import "fmt"

// Error is the closed set of failures of the extent data path. The
// values are compared with errors.Is; the actual error may carry the
// underlying cause.
type Error int

const (
	// ErrUnsupported means the compression algorithm is not
	// implemented. Nothing was allocated.
	ErrUnsupported Error = iota + 1

	// ErrOutOfMemory means working memory could not be
	// allocated. Nothing was changed.
	ErrOutOfMemory

	// ErrInternal means the codec failed (init, process or end).
	ErrInternal
)

func (self Error) Error() string {
	switch self {
	case ErrUnsupported:
		return "extent: unsupported compression"
	case ErrOutOfMemory:
		return "extent: out of memory"
	case ErrInternal:
		return "extent: internal error"
	}
	return fmt.Sprintf("extent: error %d", int(self))
}

type causedError struct {
	kind  Error
	cause error
}

func (self *causedError) Error() string {
	return fmt.Sprintf("%v: %v", self.kind, self.cause)
}

func (self *causedError) Is(target error) bool {
	return target == self.kind
}

func (self *causedError) Unwrap() error {
	return self.cause
}

func wrap(kind Error, cause error) error {
	if cause == nil {
		return kind
	}
	return &causedError{kind: kind, cause: cause}
}
