// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package leds

import (
	"context"
	"fmt"
	"sync"
)

// Sub-LED channels of a multi LED: the mode that lights it steadily and the
// mode that blinks it.
type channel struct {
	on    HDDMode
	blink HDDMode
}

var (
	blueChannel = channel{on: HDDNormal, blink: HDDPlug}
	redChannel  = channel{on: HDDFail, blink: HDDError}
)

func (c channel) lit(mode HDDMode) bool {
	return mode == c.on || mode == c.blink
}

// HDDLED is the LED of one drive bay
type HDDLED struct {
	cmd   Commander
	port  int
	color Color

	mu   sync.Mutex
	blue bool
	red  bool
}

// NewHDDLED validates the port and, for a multi LED, reads the current
// colour state from the MCU
func NewHDDLED(ctx context.Context, cmd Commander, port int, color Color) (*HDDLED, error) {
	if port < 0 || port >= MaxPorts {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrBadPort, port, MaxPorts-1)
	}
	if color != ColorRed && color != ColorMulti {
		return nil, fmt.Errorf("%w: %v", ErrBadColor, color)
	}

	l := &HDDLED{cmd: cmd, port: port, color: color}
	if color == ColorMulti {
		if err := l.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Port returns the drive bay index
func (l *HDDLED) Port() int {
	return l.port
}

// Color returns the LED type
func (l *HDDLED) Color() Color {
	return l.color
}

// SetMode writes a raw HDD mode
func (l *HDDLED) SetMode(ctx context.Context, mode HDDMode) error {
	if mode < HDDNormal || mode > HDDNotConnected {
		return fmt.Errorf("leds: invalid hdd mode %d", int(mode))
	}
	return setHDDMode(ctx, l.cmd, l.port, mode)
}

// SetOn switches a red LED on (not connected) or off (normal). For a multi
// LED it lights or clears the blue channel.
func (l *HDDLED) SetOn(ctx context.Context, on bool) error {
	if l.color == ColorMulti {
		return l.SetColor(ctx, on, false)
	}

	mode := HDDNormal
	if on {
		mode = HDDNotConnected
	}
	return setHDDMode(ctx, l.cmd, l.port, mode)
}

// Blink starts or stops error blinking on a red LED
func (l *HDDLED) Blink(ctx context.Context, blink bool) error {
	if l.color != ColorRed {
		return fmt.Errorf("%w: blink needs a red LED", ErrBadColor)
	}

	mode := HDDNormal
	if blink {
		mode = HDDError
	}
	return setHDDMode(ctx, l.cmd, l.port, mode)
}

// SetColor lights a multi LED. Blue wins over red when both are requested;
// neither turns the LED off. The stored intensities are refreshed from the
// MCU afterwards.
func (l *HDDLED) SetColor(ctx context.Context, blue, red bool) error {
	if l.color != ColorMulti {
		return fmt.Errorf("%w: color needs a multi LED", ErrBadColor)
	}

	mode := HDDNotConnected
	switch {
	case blue:
		mode = blueChannel.on
	case red:
		mode = redChannel.on
	}

	if err := setHDDMode(ctx, l.cmd, l.port, mode); err != nil {
		return err
	}
	return l.Refresh(ctx)
}

// Refresh reads the port's mode and updates which channels are lit
func (l *HDDLED) Refresh(ctx context.Context) error {
	modes, err := HDDModes(ctx, l.cmd)
	if err != nil {
		return err
	}
	if len(modes) <= l.port {
		return fmt.Errorf("%w: port %d, reply has %d", ErrNoState, l.port, len(modes))
	}

	cur := modes[l.port]
	l.mu.Lock()
	l.blue = blueChannel.lit(cur)
	l.red = redChannel.lit(cur)
	l.mu.Unlock()

	return nil
}

// Intensity returns the last known state of the blue and red channels
func (l *HDDLED) Intensity() (blue, red bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blue, l.red
}

// Off turns the LED dark
func (l *HDDLED) Off(ctx context.Context) error {
	if l.color == ColorMulti {
		return l.SetColor(ctx, false, false)
	}
	return l.SetOn(ctx, false)
}
