// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package trace records raw MCU link traffic to a CBOR stream and replays it
// through the frame reassembler.
//
// A trace is a CBOR sequence: one Header followed by any number of Records.
package trace

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is written into every header
const FormatVersion = 1

const magic = "r8c-trace"

var ErrNotTrace = errors.New("trace: not an r8c trace")

// Header opens a trace
type Header struct {
	Magic   string    `cbor:"1,keyasint"`
	Version int       `cbor:"2,keyasint"`
	Started time.Time `cbor:"3,keyasint"`
	Source  string    `cbor:"4,keyasint,omitempty"`
}

// Record is one chunk of traffic as seen by the session tap
type Record struct {
	Offset    time.Duration `cbor:"1,keyasint"` // since Header.Started
	Direction r8c.Direction `cbor:"2,keyasint"`
	Data      []byte        `cbor:"3,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	encMode, err = opts.EncMode()
	if err != nil {
		panic("trace: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("trace: CBOR decoder initialization failed: " + err.Error())
	}
}

// Recorder writes link traffic to w. Its Tap method can be passed to
// r8c.WithTap.
type Recorder struct {
	mu    sync.Mutex
	enc   *cbor.Encoder
	start time.Time
	count uint64
	err   error
	now   func() time.Time
}

// NewRecorder writes the header and returns a recorder. source is a free
// form description of the link, such as the serial port.
func NewRecorder(w io.Writer, source string) (*Recorder, error) {
	r := &Recorder{
		enc: encMode.NewEncoder(w),
		now: time.Now,
	}
	r.start = r.now()

	h := Header{Magic: magic, Version: FormatVersion, Started: r.start, Source: source}
	if err := r.enc.Encode(h); err != nil {
		return nil, fmt.Errorf("trace: write header: %w", err)
	}

	return r, nil
}

// Tap records one chunk. The first write error stops recording and is
// reported by Err.
func (r *Recorder) Tap(dir r8c.Direction, data []byte) {
	rec := Record{Direction: dir, Data: append([]byte(nil), data...)}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}
	rec.Offset = r.now().Sub(r.start)
	if err := r.enc.Encode(rec); err != nil {
		r.err = fmt.Errorf("trace: write record: %w", err)
		return
	}
	r.count++
}

// Count returns the number of records written
func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the first write error
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Reader reads a trace
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and checks the header
func NewReader(rd io.Reader) (*Reader, error) {
	dec := decMode.NewDecoder(rd)

	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTrace, err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrNotTrace, h.Magic)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("trace: unsupported version %d", h.Version)
	}

	return &Reader{dec: dec, header: h}, nil
}

// Header returns the trace header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF at the end of the trace
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("trace: read record: %w", err)
	}
	return rec, nil
}
