/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 30 13:50:01 2017 mstenber
 * Last modified: Mon Apr 16 12:58:21 2018 mstenber
 * Edit time:     22 min
 *
 */

package mlog

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stvp/assert"
)

func TestMlog(t *testing.T) {
	add := func(pattern string, outputted bool) {
		t.Run(pattern, func(t *testing.T) {
			var b bytes.Buffer
			logger := log.New(&b, "", 0)
			defer SetLogger(logger)()
			defer SetPattern(pattern)()
			Printf("foo %s", "bar")
			assert.Equal(t, b.Len() > 0, outputted)
			if outputted {
				assert.True(t, strings.HasSuffix(b.String(), " foo bar\n"))
			}
			assert.Equal(t, IsEnabled(), pattern != "")
		})
	}
	add("", false)
	add("zzzglorb", false)
	add("mlog_test", true)
}

func TestPrintf2(t *testing.T) {
	var b bytes.Buffer
	defer SetLogger(log.New(&b, "", 0))()
	defer SetPattern("^chunk/")()
	Printf2("chunk/manager", "placed %d", 42)
	Printf2("extent/writer", "skipped %d", 7)
	assert.True(t, strings.Contains(b.String(), "placed 42"))
	assert.True(t, !strings.Contains(b.String(), "skipped"))
}

func TestPanicf(t *testing.T) {
	var b bytes.Buffer
	defer SetLogger(log.New(&b, "", 0))()
	defer func() {
		r := recover()
		assert.NotEqual(t, r, nil)
		assert.True(t, strings.Contains(b.String(), "boom 1"))
	}()
	Panicf("boom %d", 1)
}

func BenchmarkMlogDisabled(b *testing.B) {
	defer SetPattern("")()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Printf2("x", "y %d", 42)
	}
}

func BenchmarkMlogNotMatching(b *testing.B) {
	defer SetPattern("nomatch")()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Printf2("x", "y %d", 42)
	}
}
