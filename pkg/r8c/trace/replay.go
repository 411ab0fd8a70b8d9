// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package trace

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
)

// Frame is one decoded line from a replayed trace
type Frame struct {
	Offset time.Duration
	Kind   r8c.FrameKind
	Text   string // payload without marker and line feed
}

func (f Frame) String() string {
	return fmt.Sprintf("[%10.3fs] %-7s %s", f.Offset.Seconds(), f.Kind, f.Text)
}

// Summary counts what a replay produced
type Summary struct {
	Records   int
	Commands  int
	Replies   int
	Events    int
	Discarded uint64
}

func (s Summary) String() string {
	result := "=== Replay Summary ===\n"
	result += fmt.Sprintf("Records:   %8d\n", s.Records)
	result += fmt.Sprintf("Commands:  %8d\n", s.Commands)
	result += fmt.Sprintf("Replies:   %8d\n", s.Replies)
	result += fmt.Sprintf("Events:    %8d\n", s.Events)
	if s.Discarded > 0 {
		result += fmt.Sprintf("Discarded: %8d bytes\n", s.Discarded)
	}
	return result
}

// Replay reads a trace and calls fn for every frame in order. Outbound
// records are reported as commands; inbound bytes are run through a fresh
// r8c.Reassembler exactly as a live session would.
func Replay(rd io.Reader, fn func(Frame)) (Summary, error) {
	var sum Summary

	tr, err := NewReader(rd)
	if err != nil {
		return sum, err
	}

	rx := r8c.NewReassembler()
	for {
		rec, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sum.Discarded = rx.Discarded()
			return sum, err
		}
		sum.Records++

		if rec.Direction == r8c.DirectionTx {
			sum.Commands++
			text := bytes.TrimSuffix(bytes.TrimPrefix(rec.Data, []byte{r8c.MarkerCommand}), []byte{'\n'})
			fn(Frame{Offset: rec.Offset, Kind: r8c.FrameCommand, Text: string(text)})
			continue
		}

		chunk := rec.Data
		for len(chunk) > 0 {
			n, res := rx.Feed(chunk)
			chunk = chunk[n:]

			switch res.Kind {
			case r8c.ResultReply:
				sum.Replies++
				fn(Frame{Offset: rec.Offset, Kind: r8c.FrameReply, Text: string(res.Reply)})
			case r8c.ResultEvent:
				sum.Events++
				fn(Frame{Offset: rec.Offset, Kind: r8c.FrameEvent, Text: string(res.Event)})
			}
		}
	}

	sum.Discarded = rx.Discarded()
	return sum, nil
}
