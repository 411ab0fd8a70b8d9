// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package leds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeMCU emulates the LED commands of the MCU
type fakeMCU struct {
	div    int    // 1 or 10
	raw    int    // brightness in MCU units
	status string // hex id
	hdd    []byte // one digit per port
	sent   []string
}

func newFakeMCU(div int) *fakeMCU {
	return &fakeMCU{div: div, status: "1", hdd: []byte("5555")}
}

func (f *fakeMCU) Execute(ctx context.Context, name, arg string, replyLen int) (string, error) {
	line := name
	if arg != "" {
		line += " " + arg
	}
	f.sent = append(f.sent, line)

	var reply string
	switch name {
	case CmdBrightness:
		if arg != "" {
			var v int
			fmt.Sscanf(arg, "%d", &v)
			f.raw = v
			if f.raw > MaxBrightness/f.div {
				f.raw = MaxBrightness / f.div
			}
			return "", nil
		}
		reply = fmt.Sprintf("%02x", f.raw)
	case CmdStatus:
		if arg != "" {
			for _, m := range StatusModes {
				if m.Name == arg {
					f.status = fmt.Sprintf("%x", m.ID)
				}
			}
			return "", nil
		}
		reply = f.status
	case CmdHDD:
		if arg != "" {
			var port, mode int
			fmt.Sscanf(arg, "%d %d", &port, &mode)
			f.hdd[port] = byte('0' + mode)
			return "", nil
		}
		reply = string(f.hdd)
	default:
		return "", errors.New("unknown command")
	}

	if replyLen <= 0 {
		return "", nil
	}
	if len(reply) > replyLen-1 {
		reply = reply[:replyLen-1]
	}
	return reply, nil
}

func (f *fakeMCU) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func TestProbeBrightness(t *testing.T) {
	tests := []struct {
		div     int
		wantDiv int
	}{
		{div: 10, wantDiv: 10},
		{div: 1, wantDiv: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("div %d", tt.div), func(t *testing.T) {
			mcu := newFakeMCU(tt.div)
			b, err := ProbeBrightness(context.Background(), mcu)
			if err != nil {
				t.Fatalf("ProbeBrightness() error = %v", err)
			}
			if b.Divisor() != tt.wantDiv {
				t.Errorf("Divisor() = %d, want %d", b.Divisor(), tt.wantDiv)
			}
			if mcu.sent[0] != "led 100" || mcu.sent[1] != "led" {
				t.Errorf("probe sent %q, want [led 100, led]", mcu.sent)
			}
		})
	}
}

type replyFunc func(name, arg string) string

func (f replyFunc) Execute(ctx context.Context, name, arg string, replyLen int) (string, error) {
	return f(name, arg), nil
}

func TestProbeBrightness_UnknownScale(t *testing.T) {
	cmd := replyFunc(func(name, arg string) string { return "32" })
	if _, err := ProbeBrightness(context.Background(), cmd); !errors.Is(err, ErrUnknownDivisor) {
		t.Errorf("ProbeBrightness() error = %v, want ErrUnknownDivisor", err)
	}
}

func TestBrightness_GetSet(t *testing.T) {
	tests := []struct {
		div     int
		set     int
		wantArg string
		wantGet int
	}{
		{div: 10, set: 45, wantArg: "led 5", wantGet: 50},
		{div: 10, set: 100, wantArg: "led 10", wantGet: 100},
		{div: 10, set: 1, wantArg: "led 1", wantGet: 10},
		{div: 10, set: 0, wantArg: "led 0", wantGet: 0},
		{div: 1, set: 37, wantArg: "led 37", wantGet: 37},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("div %d set %d", tt.div, tt.set), func(t *testing.T) {
			mcu := newFakeMCU(tt.div)
			b, err := ProbeBrightness(context.Background(), mcu)
			if err != nil {
				t.Fatalf("ProbeBrightness() error = %v", err)
			}

			if err := b.Set(context.Background(), tt.set); err != nil {
				t.Fatalf("Set(%d) error = %v", tt.set, err)
			}
			if mcu.last() != tt.wantArg {
				t.Errorf("Set(%d) sent %q, want %q", tt.set, mcu.last(), tt.wantArg)
			}

			got, err := b.Get(context.Background())
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.wantGet {
				t.Errorf("Get() = %d, want %d", got, tt.wantGet)
			}
		})
	}
}

func TestBrightness_SetOutOfRange(t *testing.T) {
	b := &Brightness{cmd: newFakeMCU(1), div: 1}
	for _, pct := range []int{-1, 101} {
		if err := b.Set(context.Background(), pct); !errors.Is(err, ErrBadBrightness) {
			t.Errorf("Set(%d) error = %v, want ErrBadBrightness", pct, err)
		}
	}
}

func TestStatus(t *testing.T) {
	mcu := newFakeMCU(1)
	ctx := context.Background()

	mcu.status = "8"
	got, err := Status(ctx, mcu)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if got.Name != "serious_err" {
		t.Errorf("Status() = %q, want serious_err", got.Name)
	}
	if s := FormatStatus(got); s != "on blink err notice notify [serious_err]" {
		t.Errorf("FormatStatus() = %q", s)
	}

	if err := SetStatus(ctx, mcu, "notify"); err != nil {
		t.Fatalf("SetStatus(notify) error = %v", err)
	}
	if mcu.last() != "sts notify" {
		t.Errorf("SetStatus sent %q, want %q", mcu.last(), "sts notify")
	}

	for _, bad := range []string{"serious_err", "off", ""} {
		if err := SetStatus(ctx, mcu, bad); !errors.Is(err, ErrUnknownStatus) {
			t.Errorf("SetStatus(%q) error = %v, want ErrUnknownStatus", bad, err)
		}
	}

	mcu.status = "3"
	if _, err := Status(ctx, mcu); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("Status(id 3) error = %v, want ErrUnknownStatus", err)
	}
}

func TestHDDLED_Red(t *testing.T) {
	mcu := newFakeMCU(1)
	ctx := context.Background()

	l, err := NewHDDLED(ctx, mcu, 2, ColorRed)
	if err != nil {
		t.Fatalf("NewHDDLED() error = %v", err)
	}

	steps := []struct {
		name string
		do   func() error
		want string
	}{
		{"on", func() error { return l.SetOn(ctx, true) }, "hdd 2 5"},
		{"off", func() error { return l.SetOn(ctx, false) }, "hdd 2 0"},
		{"blink", func() error { return l.Blink(ctx, true) }, "hdd 2 2"},
		{"stop blink", func() error { return l.Blink(ctx, false) }, "hdd 2 0"},
	}
	for _, s := range steps {
		if err := s.do(); err != nil {
			t.Fatalf("%s: error = %v", s.name, err)
		}
		if mcu.last() != s.want {
			t.Errorf("%s: sent %q, want %q", s.name, mcu.last(), s.want)
		}
	}

	if err := l.SetColor(ctx, true, false); !errors.Is(err, ErrBadColor) {
		t.Errorf("SetColor on red LED error = %v, want ErrBadColor", err)
	}
}

func TestHDDLED_Multi(t *testing.T) {
	mcu := newFakeMCU(10)
	mcu.hdd = []byte("3500")
	ctx := context.Background()

	l, err := NewHDDLED(ctx, mcu, 0, ColorMulti)
	if err != nil {
		t.Fatalf("NewHDDLED() error = %v", err)
	}
	if blue, red := l.Intensity(); !blue || red {
		t.Errorf("initial intensity = %v/%v, want blue only (mode 3)", blue, red)
	}

	tests := []struct {
		blue, red         bool
		wantMode          string
		wantBlue, wantRed bool
	}{
		{blue: false, red: true, wantMode: "hdd 0 1", wantRed: true},
		{blue: true, red: true, wantMode: "hdd 0 0", wantBlue: true},
		{blue: false, red: false, wantMode: "hdd 0 5"},
	}
	for _, tt := range tests {
		if err := l.SetColor(ctx, tt.blue, tt.red); err != nil {
			t.Fatalf("SetColor(%v, %v) error = %v", tt.blue, tt.red, err)
		}
		// the mode write is followed by a refresh read
		if got := mcu.sent[len(mcu.sent)-2]; got != tt.wantMode {
			t.Errorf("SetColor(%v, %v) sent %q, want %q", tt.blue, tt.red, got, tt.wantMode)
		}
		if blue, red := l.Intensity(); blue != tt.wantBlue || red != tt.wantRed {
			t.Errorf("SetColor(%v, %v) intensity = %v/%v, want %v/%v", tt.blue, tt.red, blue, red, tt.wantBlue, tt.wantRed)
		}
	}

	mcu.hdd[0] = '2'
	if err := l.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if blue, red := l.Intensity(); blue || !red {
		t.Errorf("intensity for mode 2 = %v/%v, want red only", blue, red)
	}
}

func TestNewHDDLED_Errors(t *testing.T) {
	ctx := context.Background()

	for _, port := range []int{-1, MaxPorts} {
		if _, err := NewHDDLED(ctx, newFakeMCU(1), port, ColorRed); !errors.Is(err, ErrBadPort) {
			t.Errorf("NewHDDLED(port %d) error = %v, want ErrBadPort", port, err)
		}
	}

	short := replyFunc(func(name, arg string) string { return "0" })
	if _, err := NewHDDLED(ctx, short, 3, ColorMulti); !errors.Is(err, ErrNoState) {
		t.Errorf("NewHDDLED(short reply) error = %v, want ErrNoState", err)
	}
}

func TestController(t *testing.T) {
	mcu := newFakeMCU(10)
	mcu.hdd = []byte("0000")
	ctx := context.Background()

	c, err := NewController(ctx, mcu, []PortConfig{
		{Port: 0, Color: ColorMulti},
		{Port: 1, Color: ColorRed},
		{Port: 7, Color: ColorRed},
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	if len(c.HDDs()) != 2 {
		t.Errorf("registered %d HDD LEDs, want 2 (port 7 skipped)", len(c.HDDs()))
	}
	if c.HDD(7) != nil {
		t.Error("HDD(7) should be nil")
	}
	if mcu.last() != "sts on" {
		t.Errorf("last command = %q, want status reset to on", mcu.last())
	}
	if c.Brightness().Divisor() != 10 {
		t.Errorf("Divisor() = %d, want 10", c.Brightness().Divisor())
	}

	mcu.sent = nil
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	joined := strings.Join(mcu.sent, ",")
	if !strings.Contains(joined, "hdd 0 5") || !strings.Contains(joined, "hdd 1 0") {
		t.Errorf("Shutdown sent %q, want multi port 0 -> 5 and red port 1 -> 0", joined)
	}
}

func TestParseHDDMode(t *testing.T) {
	tests := []struct {
		in   string
		want HDDMode
	}{
		{"normal", HDDNormal},
		{"0", HDDNormal},
		{"error", HDDError},
		{"5", HDDNotConnected},
		{"nc", HDDNotConnected},
	}
	for _, tt := range tests {
		got, err := ParseHDDMode(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseHDDMode(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseHDDMode("6"); err == nil {
		t.Error("ParseHDDMode(\"6\") should fail")
	}
}
