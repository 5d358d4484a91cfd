/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan 11 07:40:22 2018 mstenber
 * Last modified: Mon Apr 16 11:20:53 2018 mstenber
 * Edit time:     21 min
 *
 */

package util

import (
	"runtime"
	"sync"
)

const DefaultPerCPU = 2

// ParallelLimiter ensures that at most N things run at the same
// time. Either defer Limited()(), or Go(func).
type ParallelLimiter struct {
	// LimitPerCPU is used to derive LimitTotal if it is not set
	// (defaults to DefaultPerCPU).
	LimitPerCPU int

	// LimitTotal is the overall number of concurrent slots.
	LimitTotal int

	lock    MutexLocked
	cond    sync.Cond
	running int
	ready   bool
}

func (self *ParallelLimiter) init() {
	if self.LimitTotal == 0 {
		if self.LimitPerCPU == 0 {
			self.LimitPerCPU = DefaultPerCPU
		}
		self.LimitTotal = runtime.NumCPU() * self.LimitPerCPU
	}
	self.cond.L = &self.lock
	self.ready = true
}

// Limited reserves one slot; the returned function gives it back.
func (self *ParallelLimiter) Limited() func() {
	defer self.lock.Locked()()
	if !self.ready {
		self.init()
	}
	for self.running >= self.LimitTotal {
		self.cond.Wait()
	}
	self.running++
	return func() {
		defer self.lock.Locked()()
		self.running--
		self.cond.Signal()
	}
}

// Go runs cb in a goroutine once a slot is available. wg, if given,
// is marked done when cb returns.
func (self *ParallelLimiter) Go(wg *sync.WaitGroup, cb func()) {
	unlock := self.Limited()
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		defer unlock()
		if wg != nil {
			defer wg.Done()
		}
		cb()
	}()
}
