// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package trace

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
)

func TestRecorder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, "/dev/ttyS1")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	tick := rec.start
	rec.now = func() time.Time {
		tick = tick.Add(10 * time.Millisecond)
		return tick
	}

	data := []byte(":model\n")
	rec.Tap(r8c.DirectionTx, data)
	data[1] = 'X' // the recorder must keep its own copy
	rec.Tap(r8c.DirectionRx, []byte(";NAS9"))

	if rec.Count() != 2 || rec.Err() != nil {
		t.Fatalf("Count() = %d, Err() = %v; want 2, nil", rec.Count(), rec.Err())
	}

	rd, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if rd.Header().Source != "/dev/ttyS1" || rd.Header().Version != FormatVersion {
		t.Errorf("Header() = %+v", rd.Header())
	}

	want := []Record{
		{Offset: 10 * time.Millisecond, Direction: r8c.DirectionTx, Data: []byte(":model\n")},
		{Offset: 20 * time.Millisecond, Direction: r8c.DirectionRx, Data: []byte(";NAS9")},
	}
	for i, w := range want {
		got, err := rd.Next()
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if got.Offset != w.Offset || got.Direction != w.Direction || !bytes.Equal(got.Data, w.Data) {
			t.Errorf("record %d = %+v, want %+v", i, got, w)
		}
	}
	if _, err := rd.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() at end error = %v, want io.EOF", err)
	}
}

type failWriter struct{ after int }

func (w *failWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestRecorder_StopsAfterWriteError(t *testing.T) {
	rec, err := NewRecorder(&failWriter{after: 1}, "")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	rec.Tap(r8c.DirectionRx, []byte("@C"))
	rec.Tap(r8c.DirectionRx, []byte("@c"))

	if rec.Err() == nil {
		t.Error("Err() should report the write failure")
	}
	if rec.Count() != 0 {
		t.Errorf("Count() = %d, want 0", rec.Count())
	}
}

func TestNewReader_RejectsGarbage(t *testing.T) {
	if _, err := NewReader(bytes.NewReader([]byte("not cbor at all"))); !errors.Is(err, ErrNotTrace) {
		t.Errorf("NewReader(garbage) error = %v, want ErrNotTrace", err)
	}

	var buf bytes.Buffer
	if err := encMode.NewEncoder(&buf).Encode(Header{Magic: "other", Version: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(&buf); !errors.Is(err, ErrNotTrace) {
		t.Errorf("NewReader(bad magic) error = %v, want ErrNotTrace", err)
	}
}

func TestReplay(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, "test")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	// the same chunking a live session could see
	rec.Tap(r8c.DirectionTx, []byte(":hdd\n"))
	rec.Tap(r8c.DirectionRx, []byte(";01"))
	rec.Tap(r8c.DirectionRx, []byte("@P"))
	rec.Tap(r8c.DirectionRx, []byte("23\n@p\n"))
	rec.Tap(r8c.DirectionRx, []byte("noise"))

	var frames []Frame
	sum, err := Replay(&buf, func(f Frame) { frames = append(frames, f) })
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	want := []struct {
		kind r8c.FrameKind
		text string
	}{
		{r8c.FrameCommand, "hdd"},
		{r8c.FrameEvent, "P"},
		{r8c.FrameReply, "0123"},
		{r8c.FrameEvent, "p"},
	}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames %+v, want %d", len(frames), frames, len(want))
	}
	for i, w := range want {
		if frames[i].Kind != w.kind || frames[i].Text != w.text {
			t.Errorf("frame %d = %v %q, want %v %q", i, frames[i].Kind, frames[i].Text, w.kind, w.text)
		}
	}

	if sum.Records != 5 || sum.Commands != 1 || sum.Replies != 1 || sum.Events != 2 {
		t.Errorf("Summary = %+v", sum)
	}
	if sum.Discarded != uint64(len("noise")) {
		t.Errorf("Discarded = %d, want %d", sum.Discarded, len("noise"))
	}
}
