// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package leds

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// StatusMode is a mode of the status LED. The LED has no off state.
type StatusMode struct {
	ID       int
	Name     string
	Settable bool
}

// StatusModes lists the modes reported by "sts"
var StatusModes = []StatusMode{
	{ID: 0, Name: "on", Settable: true},
	{ID: 1, Name: "blink", Settable: true},
	{ID: 2, Name: "err", Settable: true},
	{ID: 4, Name: "notice", Settable: true},
	{ID: 5, Name: "notify", Settable: true},
	{ID: 8, Name: "serious_err"},
}

// Status reads the current status LED mode
func Status(ctx context.Context, cmd Commander) (StatusMode, error) {
	reply, err := cmd.Execute(ctx, CmdStatus, "", statusReplyLen)
	if err != nil {
		return StatusMode{}, err
	}
	if reply == "" {
		return StatusMode{}, fmt.Errorf("%w: empty reply", ErrUnknownStatus)
	}

	id, err := strconv.ParseInt(reply, 16, 32)
	if err != nil {
		return StatusMode{}, fmt.Errorf("leds: parse status %q: %w", reply, err)
	}

	for _, m := range StatusModes {
		if m.ID == int(id) {
			return m, nil
		}
	}
	return StatusMode{ID: int(id)}, fmt.Errorf("%w: id %d", ErrUnknownStatus, id)
}

// SetStatus sets the status LED by mode name. serious_err can only be
// reported by the MCU.
func SetStatus(ctx context.Context, cmd Commander, name string) error {
	name = strings.TrimSpace(name)
	for _, m := range StatusModes {
		if m.Name != name {
			continue
		}
		if !m.Settable {
			return fmt.Errorf("%w: %q is read-only", ErrUnknownStatus, name)
		}
		_, err := cmd.Execute(ctx, CmdStatus, m.Name, 0)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}

// FormatStatus lists every mode name with the current one bracketed,
// e.g. "on [blink] err notice notify serious_err"
func FormatStatus(current StatusMode) string {
	names := make([]string, 0, len(StatusModes))
	for _, m := range StatusModes {
		if m.ID == current.ID {
			names = append(names, "["+m.Name+"]")
		} else {
			names = append(names, m.Name)
		}
	}
	return strings.Join(names, " ")
}
