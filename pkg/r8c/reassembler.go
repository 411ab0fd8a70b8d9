// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package r8c

import "bytes"

// ResultKind identifies what a Feed call produced
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultReply
	ResultEvent
)

// Result is the outcome of feeding one chunk to the Reassembler
type Result struct {
	Kind  ResultKind
	Reply []byte // Reply payload without the marker and line feed
	Event byte   // Event code
}

// Reassembler rebuilds protocol lines from arbitrarily chunked input.
//
// Replies are captured into a fixed buffer that persists across calls until
// a line feed is seen. Events are never buffered. A Reassembler is not safe
// for concurrent use.
type Reassembler struct {
	buf       [ReplyBufferSize]byte
	offset    int // offsetIdle when no reply capture is in progress
	discarded uint64
}

// NewReassembler creates an idle reassembler
func NewReassembler() *Reassembler {
	return &Reassembler{offset: offsetIdle}
}

// Reset drops any partial reply and returns to idle
func (r *Reassembler) Reset() {
	r.buf = [ReplyBufferSize]byte{}
	r.offset = offsetIdle
}

// Capturing reports whether a reply capture is in progress
func (r *Reassembler) Capturing() bool {
	return r.offset != offsetIdle
}

// Discarded returns the number of bytes dropped as protocol noise
func (r *Reassembler) Discarded() uint64 {
	return r.discarded
}

// Feed processes at most one line from chunk.
//
// When chunk holds more bytes after its first line feed, only the bytes up to
// and including that line feed are consumed; the caller feeds chunk[consumed:]
// next. Feed always consumes at least one byte of a non-empty chunk.
func (r *Reassembler) Feed(chunk []byte) (consumed int, res Result) {
	if len(chunk) == 0 {
		return 0, Result{}
	}

	consumed = len(chunk)
	if lf := bytes.IndexByte(chunk, '\n'); lf >= 0 && lf+1 < len(chunk) {
		consumed = lf + 1
	}
	line := chunk[:consumed]

	var copied, want int
	switch line[0] {
	case MarkerEvent:
		if len(line) < MinEventLen {
			r.discarded += uint64(len(line))
			return consumed, Result{}
		}
		return consumed, Result{Kind: ResultEvent, Event: line[1]}

	case MarkerReply:
		// start over even if a previous capture never completed
		want = len(line) - 1
		copied = copy(r.buf[:ReplyBufferSize-1], line[1:])
		r.offset = copied

	default:
		if r.offset == offsetIdle {
			r.discarded += uint64(len(line))
			return consumed, Result{}
		}
		want = len(line)
		if r.offset+1 < ReplyBufferSize {
			copied = copy(r.buf[r.offset:ReplyBufferSize-1], line)
			r.offset += copied
		}
	}

	if lf := bytes.IndexByte(r.buf[:r.offset], '\n'); lf >= 0 {
		return consumed, r.complete(lf)
	}

	if copied < want {
		r.discarded += uint64(want - copied)
		// the line feed fell off the end of a full buffer: hand over
		// what fits rather than waiting for a terminator that is gone
		if line[len(line)-1] == '\n' {
			return consumed, r.complete(r.offset)
		}
	}

	return consumed, Result{}
}

// complete ends the capture with buf[:n] as the payload
func (r *Reassembler) complete(n int) Result {
	reply := make([]byte, n)
	copy(reply, r.buf[:n])
	r.Reset()
	return Result{Kind: ResultReply, Reply: reply}
}
