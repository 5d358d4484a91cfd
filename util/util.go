/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 09:03:12 2017 mstenber
 * Last modified: Mon Apr 16 11:02:19 2018 mstenber
 * Edit time:     12 min
 *
 */

package util

import "encoding/binary"

func ConcatBytes(bytes ...[]byte) []byte {
	nl := 0
	for _, b := range bytes {
		nl += len(b)
	}
	r := make([]byte, 0, nl)
	for _, b := range bytes {
		r = append(r, b...)
	}
	return r
}

func Uint64Bytes(n uint64) []byte {
	nb := make([]byte, 8)
	binary.BigEndian.PutUint64(nb, n)
	return nb
}

// BytesUint64 is the inverse of Uint64Bytes; it reads the first 8
// bytes of b.
func BytesUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// AlignUp rounds n up to the next multiple of align (which must be
// power of two).
func AlignUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}

// AlignDown rounds n down to a multiple of align (which must be
// power of two).
func AlignDown(n, align uint64) uint64 {
	return n &^ (align - 1)
}

func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

func U64Min(i uint64, ints ...uint64) uint64 {
	for _, v := range ints {
		if v < i {
			i = v
		}
	}
	return i
}

func U64Max(i uint64, ints ...uint64) uint64 {
	for _, v := range ints {
		if v > i {
			i = v
		}
	}
	return i
}

// ZeroBytes clears b.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
