/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Apr 16 14:10:02 2018 mstenber
 * Last modified: Tue Apr 17 11:40:18 2018 mstenber
 * Edit time:     143 min
 *
 */

package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/fingon/go-cexfs/mlog"
)

// Mode is the direction of a Stream.
type Mode int

const (
	ModeDeflate Mode = iota
	ModeInflate
)

func (self Mode) String() string {
	if self == ModeInflate {
		return "inflate"
	}
	return "deflate"
}

// State of a Stream; transitions are Uninitialized -> Active -> Ended.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateEnded
)

// Flush policy of a single Process call.
type Flush int

const (
	// FlushNone processes as much as the buffers allow.
	FlushNone Flush = iota

	// FlushFinish also terminates the stream (deflate only).
	FlushFinish
)

// Status of a single Process call.
type Status int

const (
	// StatusOK means progress was made, and more may follow.
	StatusOK Status = iota

	// StatusStreamEnd means the stream is complete.
	StatusStreamEnd

	// StatusBufError means no progress was possible with the
	// current buffers.
	StatusBufError

	// StatusError accompanies a non-nil error.
	StatusError
)

func (self Status) String() string {
	switch self {
	case StatusOK:
		return "ok"
	case StatusStreamEnd:
		return "stream-end"
	case StatusBufError:
		return "buf-error"
	}
	return "error"
}

// CodecError describes failure within the codec itself.
type CodecError struct {
	Op   string // init, process or end
	Mode Mode
	Err  error
}

func (self *CodecError) Error() string {
	return fmt.Sprintf("codec: %s %s: %v", self.Mode, self.Op, self.Err)
}

func (self *CodecError) Unwrap() error {
	return self.Err
}

var errBadState = errors.New("invalid stream state")
var errOutputFull = errors.New("output buffer exhausted")

// Stream is a zlib inflate or deflate run over caller provided input
// and output buffers. The whole input is bound at once; output space
// is the fixed capacity of the output buffer. Memory for the codec
// state comes from the Pool given at creation.
type Stream struct {
	mode  Mode
	level int
	pool  *Pool
	state State

	in     []byte
	inPos  int
	out    []byte
	outPos int

	// reached StatusStreamEnd
	finished bool

	// deflate
	zw       *zlib.Writer
	sinkFull bool

	// inflate
	zr  io.ReadCloser
	src bytes.Reader
}

// NewDeflater creates an uninitialized compressing Stream.
func NewDeflater(pool *Pool, level int) *Stream {
	return &Stream{mode: ModeDeflate, level: level, pool: pool}
}

// NewInflater creates an uninitialized decompressing Stream.
func NewInflater(pool *Pool) *Stream {
	return &Stream{mode: ModeInflate, pool: pool}
}

func (self *Stream) SetInput(in []byte) {
	self.in = in
	self.inPos = 0
}

func (self *Stream) SetOutput(out []byte) {
	self.out = out
	self.outPos = 0
}

func (self *Stream) State() State {
	return self.state
}

// AvailIn is the amount of input not yet consumed.
func (self *Stream) AvailIn() int {
	if self.mode == ModeInflate && self.zr != nil {
		return self.src.Len()
	}
	return len(self.in) - self.inPos
}

// AvailOut is the amount of unused output space.
func (self *Stream) AvailOut() int {
	return len(self.out) - self.outPos
}

// TotalOut is the amount of output produced.
func (self *Stream) TotalOut() int {
	return self.outPos
}

func (self *Stream) fail(op string, err error) error {
	return &CodecError{Op: op, Mode: self.mode, Err: err}
}

// Init moves the stream to StateActive.
func (self *Stream) Init() error {
	if self.state != StateUninitialized {
		return self.fail("init", errBadState)
	}
	if self.mode == ModeDeflate {
		zw, err := self.pool.allocWriter((*deflateSink)(self), self.level)
		if err != nil {
			return self.fail("init", err)
		}
		self.zw = zw
	}
	// inflate state is allocated on first Process, as the zlib
	// reader wants to see the header immediately
	self.state = StateActive
	mlog.Printf2("codec/stream", "%v.Init level:%d", self.mode, self.level)
	return nil
}

// Process runs the algorithm with the current buffers.
func (self *Stream) Process(flush Flush) (Status, error) {
	if self.state != StateActive {
		return StatusError, self.fail("process", errBadState)
	}
	if self.finished {
		return StatusStreamEnd, nil
	}
	if self.mode == ModeDeflate {
		return self.deflate(flush)
	}
	return self.inflate()
}

func (self *Stream) deflate(flush Flush) (Status, error) {
	if self.sinkFull {
		return StatusBufError, nil
	}
	n, err := self.zw.Write(self.in[self.inPos:])
	self.inPos += n
	if err == nil && flush == FlushFinish {
		err = self.zw.Close()
		if err == nil {
			self.finished = true
			return StatusStreamEnd, nil
		}
	}
	if errors.Is(err, errOutputFull) {
		// Not an error as such; caller sees AvailOut() == 0.
		self.sinkFull = true
		return StatusOK, nil
	}
	if err != nil {
		return StatusError, self.fail("process", err)
	}
	return StatusOK, nil
}

func (self *Stream) inflate() (Status, error) {
	if self.zr == nil {
		self.src.Reset(self.in)
		zr, err := self.pool.allocReader(&self.src)
		if err != nil {
			return StatusError, self.fail("process", err)
		}
		self.zr = zr
	}
	if self.AvailOut() == 0 {
		// Either the stream is done, or the output is too small.
		var probe [1]byte
		n, err := self.zr.Read(probe[:])
		if n == 0 && err == io.EOF {
			self.finished = true
			return StatusStreamEnd, nil
		}
		if n == 0 && err != nil {
			return StatusError, self.fail("process", err)
		}
		return StatusBufError, nil
	}
	n, err := self.zr.Read(self.out[self.outPos:])
	self.outPos += n
	switch {
	case err == io.EOF:
		self.finished = true
		return StatusStreamEnd, nil
	case err != nil:
		return StatusError, self.fail("process", err)
	case n == 0:
		return StatusBufError, nil
	}
	return StatusOK, nil
}

// End releases the codec state back to the pool. It fails if the
// stream is not active, or if the algorithm considers its state
// corrupt; the stream is ended in either case.
func (self *Stream) End() error {
	if self.state != StateActive {
		return self.fail("end", errBadState)
	}
	self.state = StateEnded
	mlog.Printf2("codec/stream", "%v.End in:%d out:%d", self.mode, self.AvailIn(), self.outPos)
	if self.mode == ModeDeflate {
		// A stream cut short by a full output buffer is not
		// corrupt; the caller simply does not use its output.
		self.pool.freeWriter(self.zw, self.level)
		self.zw = nil
		return nil
	}
	if self.zr == nil {
		return nil
	}
	err := self.zr.Close()
	self.pool.freeReader(self.zr, err == nil)
	self.zr = nil
	if err != nil {
		return self.fail("end", err)
	}
	return nil
}

// deflateSink is the output side of deflate; it copies into the
// remaining output space of the stream.
type deflateSink Stream

func (self *deflateSink) Write(p []byte) (int, error) {
	n := copy(self.out[self.outPos:], p)
	self.outPos += n
	if n < len(p) {
		return n, errOutputFull
	}
	return n, nil
}
