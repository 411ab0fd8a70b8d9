// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package r8c

import (
	"fmt"
	"sync/atomic"
)

type linkCounters struct {
	commands atomic.Uint64
	replies  atomic.Uint64
	timeouts atomic.Uint64
	events   atomic.Uint64
	bytesIn  atomic.Uint64
}

// Stats is a snapshot of link counters
type Stats struct {
	Commands        uint64 // Frames written
	Replies         uint64 // Replies returned to a caller
	Timeouts        uint64
	Events          uint64 // Event frames received
	EventsDelivered uint64 // Handler chain runs (events may coalesce)
	BytesReceived   uint64
	BytesDiscarded  uint64 // Continuation bytes with no reply capture, overflow
}

// Stats returns a snapshot of the link counters
func (s *Session) Stats() Stats {
	s.rxMu.Lock()
	discarded := s.rx.Discarded()
	s.rxMu.Unlock()

	return Stats{
		Commands:        s.stats.commands.Load(),
		Replies:         s.stats.replies.Load(),
		Timeouts:        s.stats.timeouts.Load(),
		Events:          s.stats.events.Load(),
		EventsDelivered: s.dispatcher.Delivered(),
		BytesReceived:   s.stats.bytesIn.Load(),
		BytesDiscarded:  discarded,
	}
}

// String returns a formatted statistics summary
func (st Stats) String() string {
	result := "=== Link Statistics ===\n"
	result += fmt.Sprintf("Commands:        %8d\n", st.Commands)
	result += fmt.Sprintf("Replies:         %8d\n", st.Replies)
	result += fmt.Sprintf("Timeouts:        %8d\n", st.Timeouts)
	result += fmt.Sprintf("Events:          %8d (%d delivered)\n", st.Events, st.EventsDelivered)
	result += fmt.Sprintf("Bytes received:  %8d\n", st.BytesReceived)
	if st.BytesDiscarded > 0 {
		result += fmt.Sprintf("Bytes discarded: %8d\n", st.BytesDiscarded)
	}
	return result
}
