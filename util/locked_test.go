/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan  4 12:24:51 2018 mstenber
 * Last modified: Mon Apr 16 11:52:45 2018 mstenber
 * Edit time:     9 min
 *
 */

package util

import (
	"sync"
	"testing"

	"github.com/stvp/assert"
)

func TestMutexLocked(t *testing.T) {
	t.Parallel()
	var l MutexLocked

	var wg sync.WaitGroup
	wg.Add(10)
	j := 0
	for i := 0; i < 10; i++ {
		go func() {
			defer wg.Done()
			defer l.Locked()()
			j++
		}()
	}
	wg.Wait()
	assert.Equal(t, j, 10)
	assert.True(t, !l.IsLocked())
	unlock := l.Locked()
	assert.True(t, l.IsLocked())
	unlock()
	assert.True(t, !l.IsLocked())
}

func TestParallelLimiter(t *testing.T) {
	t.Parallel()
	pl := ParallelLimiter{LimitTotal: 2}
	var wg sync.WaitGroup
	var running, peak AtomicInt
	var lock MutexLocked
	for i := 0; i < 20; i++ {
		pl.Go(&wg, func() {
			now := running.Add(1)
			func() {
				defer lock.Locked()()
				if now > peak.Get() {
					peak.Set(now)
				}
			}()
			running.Add(-1)
		})
	}
	wg.Wait()
	assert.True(t, peak.Get() <= 2)
	assert.Equal(t, running.Get(), int64(0))
}
