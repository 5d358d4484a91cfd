/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Apr 16 13:02:11 2018 mstenber
 * Last modified: Tue Apr 17 09:14:50 2018 mstenber
 * Edit time:     11 min
 *
 */

package codec

import "fmt"

// CompressionType is the per-extent compression tag. The values are
// stored on disk and must not change.
type CompressionType uint8

const (
	// The extent payload is stored as-is.
	CompressionType_NONE CompressionType = iota

	// The extent payload is a zlib (RFC 1950) stream.
	CompressionType_ZLIB
)

func (self CompressionType) String() string {
	switch self {
	case CompressionType_NONE:
		return "none"
	case CompressionType_ZLIB:
		return "zlib"
	}
	return fmt.Sprintf("unknown(%d)", uint8(self))
}

// ParseCompressionType is the inverse of String.
func ParseCompressionType(s string) (CompressionType, error) {
	switch s {
	case "none":
		return CompressionType_NONE, nil
	case "zlib":
		return CompressionType_ZLIB, nil
	}
	return 0, fmt.Errorf("unknown compression type %q", s)
}
