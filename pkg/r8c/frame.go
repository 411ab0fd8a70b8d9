// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package r8c

import (
	"fmt"
	"strings"
)

// EncodeCommand builds the wire frame for a command.
// An empty arg produces ":<name>\n" with no trailing space.
func EncodeCommand(name, arg string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty command name", ErrInvalidCommand)
	}

	size := 1 + len(name) + 1
	if arg != "" {
		size += 1 + len(arg)
	}
	if size > MaxFrameLen {
		return nil, fmt.Errorf("%w: %q is %d bytes (max %d)", ErrFrameTooLong, name, size, MaxFrameLen)
	}

	frame := make([]byte, 0, size)
	frame = append(frame, MarkerCommand)
	frame = append(frame, name...)
	if arg != "" {
		frame = append(frame, ' ')
		frame = append(frame, arg...)
	}
	frame = append(frame, '\n')

	return frame, nil
}

// EncodeRawCommand builds a frame from an operator supplied line.
// The leading ':' is optional and a line feed is appended when missing.
func EncodeRawCommand(line string) ([]byte, error) {
	if len(line) == 0 {
		return nil, fmt.Errorf("%w: empty raw command", ErrInvalidCommand)
	}
	if len(line) > MaxRawCommandLen {
		return nil, fmt.Errorf("%w: raw command is %d bytes (max %d)", ErrFrameTooLong, len(line), MaxRawCommandLen)
	}

	if line[0] == MarkerCommand {
		if len(line) <= 1 {
			return nil, fmt.Errorf("%w: empty raw command", ErrInvalidCommand)
		}
		line = line[1:]
	}

	frame := make([]byte, 0, len(line)+2)
	frame = append(frame, MarkerCommand)
	frame = append(frame, line...)
	if !strings.Contains(line, "\n") {
		frame = append(frame, '\n')
	}

	return frame, nil
}

// FrameKind classifies a line by its leading marker
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameCommand
	FrameReply
	FrameEvent
)

// String returns the frame kind name
func (k FrameKind) String() string {
	switch k {
	case FrameCommand:
		return "COMMAND"
	case FrameReply:
		return "REPLY"
	case FrameEvent:
		return "EVENT"
	default:
		return "UNKNOWN"
	}
}

// ClassifyFrame returns the kind of a frame based on its first byte
func ClassifyFrame(line []byte) FrameKind {
	if len(line) == 0 {
		return FrameUnknown
	}
	switch line[0] {
	case MarkerCommand:
		return FrameCommand
	case MarkerReply:
		return FrameReply
	case MarkerEvent:
		return FrameEvent
	default:
		return FrameUnknown
	}
}
