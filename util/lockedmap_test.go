/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 02:01:13 2018 mstenber
 * Last modified: Mon Apr 16 12:01:33 2018 mstenber
 * Edit time:     10 min
 *
 */

package util

import (
	"sync"
	"testing"

	"github.com/stvp/assert"
)

func TestLockedMap(t *testing.T) {
	t.Parallel()
	l := &MutexLockedMap{}
	counts := make([]int, 4)
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		name := i % 4
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer l.Locked(name)()
			counts[name]++
		}()
	}
	wg.Wait()
	assert.Equal(t, l.Len(), 0)
	total := 0
	for _, v := range counts {
		total += v
	}
	assert.Equal(t, total, 40)
}

func TestLockedMapExclusion(t *testing.T) {
	t.Parallel()
	l := &MutexLockedMap{}
	unlock := l.Locked("foo")
	assert.Equal(t, l.Len(), 1)
	done := make(chan struct{})
	go func() {
		defer l.Locked("foo")()
		close(done)
	}()
	// independent names do not block
	l.Locked("bar")()
	select {
	case <-done:
		t.Fatal("foo acquired twice")
	default:
	}
	unlock()
	<-done
	assert.Equal(t, l.Len(), 0)
}
