/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 30 13:41:33 2017 mstenber
 * Last modified: Mon Apr 16 12:44:10 2018 mstenber
 * Edit time:     131 min
 *
 */

// mlog is maybe-log. It wraps standard 'log' so that what is printed
// is chosen with a regular expression matched against the source
// file (or the explicit tag given to Printf2):
//
// - MLOG environment variable or -mlog flag provides the pattern;
// empty pattern (the default) disables everything, and disabled
// calls cost one atomic load
//
// - output lines are prefixed with the goroutine id, as most of the
// interesting code paths here are concurrent
package mlog

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/fingon/go-cexfs/util/gid"
)

const (
	stateUninitialized int32 = iota
	stateDisabled
	stateEnabled
)

var state = stateUninitialized

var flagPattern = flag.String("mlog", "", "Enable logging based on the given file regular expression")

// everything below is protected by mutex
var mutex sync.Mutex
var logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
var pattern string
var patternRegexp *regexp.Regexp
var matches map[string]bool

// Reset returns the module to the uninitialized state; the next log
// call reads the environment and flags again.
func Reset() {
	mutex.Lock()
	defer mutex.Unlock()
	atomic.StoreInt32(&state, stateUninitialized)
}

// IsEnabled can be used to check if mlog is in use at all before
// doing something expensive.
func IsEnabled() bool {
	if atomic.LoadInt32(&state) == stateUninitialized {
		mutex.Lock()
		ensureInitialized()
		mutex.Unlock()
	}
	return atomic.LoadInt32(&state) == stateEnabled
}

// SetLogger overrides the output logger. The returned function
// restores the previous one.
func SetLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := logger
	logger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = old
	}
}

// SetPattern overrides the pattern from environment/flags. The
// returned function restores the previous one.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	ensureInitialized()
	old := pattern
	setPattern(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		setPattern(old)
	}
}

func setPattern(p string) {
	pattern = p
	matches = make(map[string]bool)
	if p == "" {
		patternRegexp = nil
		atomic.StoreInt32(&state, stateDisabled)
		return
	}
	patternRegexp = regexp.MustCompile(p)
	atomic.StoreInt32(&state, stateEnabled)
}

func ensureInitialized() {
	if atomic.LoadInt32(&state) != stateUninitialized {
		return
	}
	p := os.Getenv("MLOG")
	if flagPattern != nil && *flagPattern != "" {
		p = *flagPattern
	}
	setPattern(p)
}

// Printf is drop-in replacement of log.Printf. The caller's file is
// determined with runtime.Caller, so Printf2 is cheaper when
// logging is enabled for only part of the code.
func Printf(format string, args ...interface{}) {
	if atomic.LoadInt32(&state) == stateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 logs if 'file' matches the current pattern.
func Printf2(file string, format string, args ...interface{}) {
	if atomic.LoadInt32(&state) == stateDisabled {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	ensureInitialized()
	if patternRegexp == nil {
		return
	}
	match, ok := matches[file]
	if !ok {
		match = patternRegexp.MatchString(file)
		matches[file] = match
	}
	if !match {
		return
	}
	logger.Printf("%8d %s", gid.GetGoroutineID(), fmt.Sprintf(format, args...))
}

// Panicf logs the message regardless of pattern, and panics.
func Panicf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	mutex.Lock()
	l := logger
	mutex.Unlock()
	l.Panic(s)
}
