// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package r8c implements the host side of the R8C MCU line protocol found on
// I-O DATA LAN DISK boards.
//
// The MCU shares one UART for commands, replies and spontaneous button
// events. Every line starts with a type marker:
//
//	:<name>[ <arg>]\n   host -> MCU command
//	;<text>\n           MCU -> host reply
//	@<code>             MCU -> host event (one letter)
//
// A Session owns the link. Execute serializes commands and pairs each one
// with the next reply; events are fanned out to subscribers on a separate
// goroutine so handlers may issue commands of their own.
package r8c

import "time"

// Frame type markers
const (
	MarkerCommand = ':'
	MarkerReply   = ';'
	MarkerEvent   = '@'
)

// Frame size limits
const (
	MinEventLen     = 2  // "@<code>"
	MaxFrameLen     = 64 // ":<cmd> <params>\n"
	ReplyBufferSize = 32

	// MaxRawCommandLen leaves room for the marker and line feed
	MaxRawCommandLen = MaxFrameLen - 2
)

// Link defaults
const (
	DefaultBaudRate     = 57600
	DefaultReplyTimeout = time.Second
)

// Commands used by the session itself
const (
	CmdModel   = "model"
	CmdVersion = "ver"
)

// Reply capacities for the handshake commands
const (
	modelReplyLen   = 12
	versionReplyLen = 8
)

// offsetIdle marks the reassembly buffer as not capturing a reply
const offsetIdle = -1
