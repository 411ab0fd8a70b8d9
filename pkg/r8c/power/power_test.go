// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package power

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
)

type call struct {
	name, arg string
	replyLen  int
}

// scripted answers commands from a table keyed by "name arg"
type scripted struct {
	replies map[string]string
	errs    map[string]error
	calls   []call
}

func (s *scripted) Execute(ctx context.Context, name, arg string, replyLen int) (string, error) {
	s.calls = append(s.calls, call{name, arg, replyLen})
	key := name
	if arg != "" {
		key += " " + arg
	}
	if err, ok := s.errs[key]; ok {
		return "", err
	}
	return s.replies[key], nil
}

func (s *scripted) names() []string {
	var out []string
	for _, c := range s.calls {
		out = append(out, c.name)
	}
	return out
}

func newTestController(cmd Commander, opts ...Option) *Controller {
	c := NewController(cmd, opts...)
	c.sleep = func(context.Context, time.Duration) {}
	return c
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReset(t *testing.T) {
	t.Run("warm-up then reset", func(t *testing.T) {
		mcu := &scripted{replies: map[string]string{"sts": "0"}}
		if err := newTestController(mcu).Reset(context.Background()); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		if got := mcu.names(); !equal(got, []string{"sts", "reset"}) {
			t.Errorf("commands = %v, want [sts reset]", got)
		}
		if mcu.calls[1].replyLen != 0 {
			t.Errorf("reset should not wait for a reply")
		}
	})

	t.Run("warm-up timeout aborts", func(t *testing.T) {
		mcu := &scripted{errs: map[string]error{"sts": r8c.ErrTimeout}}
		err := newTestController(mcu).Reset(context.Background())
		if !errors.Is(err, ErrWarmupFailed) || !errors.Is(err, r8c.ErrTimeout) {
			t.Errorf("Reset() error = %v, want ErrWarmupFailed wrapping ErrTimeout", err)
		}
		if got := mcu.names(); !equal(got, []string{"sts"}) {
			t.Errorf("commands = %v, reset must not be sent", got)
		}
	})

	t.Run("empty warm-up reply aborts", func(t *testing.T) {
		mcu := &scripted{replies: map[string]string{}}
		if err := newTestController(mcu).Reset(context.Background()); !errors.Is(err, ErrWarmupFailed) {
			t.Errorf("Reset() error = %v, want ErrWarmupFailed", err)
		}
	})
}

func TestPowerOff(t *testing.T) {
	tests := []struct {
		name      string
		armer     bool
		flag      string
		armErr    error
		wantArmed bool
		wantCmds  []string
	}{
		{name: "no armer", wantCmds: []string{"poweroff"}},
		{name: "wake disabled", armer: true, flag: "0", wantCmds: []string{"wol_flag", "poweroff"}},
		{name: "wake enabled", armer: true, flag: "1", wantArmed: true, wantCmds: []string{"wol_flag", "poweroff"}},
		{name: "armer fails", armer: true, flag: "1", armErr: errors.New("phy busy"), wantArmed: true, wantCmds: []string{"wol_flag", "poweroff"}},
		{name: "bad flag reply", armer: true, flag: "10", wantCmds: []string{"wol_flag", "poweroff"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mcu := &scripted{replies: map[string]string{"wol_flag": tt.flag}}

			armed := false
			var opts []Option
			if tt.armer {
				opts = append(opts, WithWakeArmer(WakeArmerFunc(func(context.Context) error {
					armed = true
					return tt.armErr
				})))
			}

			if err := newTestController(mcu, opts...).PowerOff(context.Background()); err != nil {
				t.Fatalf("PowerOff() error = %v", err)
			}
			if armed != tt.wantArmed {
				t.Errorf("armed = %v, want %v", armed, tt.wantArmed)
			}
			if got := mcu.names(); !equal(got, tt.wantCmds) {
				t.Errorf("commands = %v, want %v", got, tt.wantCmds)
			}
		})
	}
}

func TestSettleDelay(t *testing.T) {
	mcu := &scripted{}
	c := NewController(mcu, WithSettleDelay(30*time.Millisecond))

	start := time.Now()
	if err := c.PowerOff(context.Background()); err != nil {
		t.Fatalf("PowerOff() error = %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Errorf("PowerOff returned after %v, want at least the settle delay", time.Since(start))
	}
}

func TestFlags(t *testing.T) {
	mcu := &scripted{replies: map[string]string{
		"wol_flag":        "1",
		"first":           "0",
		"intrp 3":         "1",
		"wol_flag set":    "0",
		"wol_flag remove": "1",
		"intrp 3 0":       "0",
		"intrp 3 1":       "00",
	}}
	c := newTestController(mcu)
	ctx := context.Background()

	if on, err := c.WakeFlag(ctx); err != nil || !on {
		t.Errorf("WakeFlag() = %v, %v; want true", on, err)
	}
	if on, err := c.FirstBootOnAC(ctx); err != nil || on {
		t.Errorf("FirstBootOnAC() = %v, %v; want false", on, err)
	}
	if on, err := c.PowerOnAC(ctx); err != nil || !on {
		t.Errorf("PowerOnAC() = %v, %v; want true", on, err)
	}

	if err := c.SetWakeFlag(ctx, true); err != nil {
		t.Errorf("SetWakeFlag(true) error = %v", err)
	}
	if err := c.SetWakeFlag(ctx, false); !errors.Is(err, ErrFlagRejected) {
		t.Errorf("SetWakeFlag(false) error = %v, want ErrFlagRejected", err)
	}
	if err := c.SetPowerOnAC(ctx, false); err != nil {
		t.Errorf("SetPowerOnAC(false) error = %v", err)
	}
	if err := c.SetPowerOnAC(ctx, true); !errors.Is(err, ErrFlagRejected) {
		t.Errorf("SetPowerOnAC(true) error = %v, want ErrFlagRejected", err)
	}
}

func TestPowerOnReason(t *testing.T) {
	tests := []struct {
		reply   string
		want    string
		wantErr error
	}{
		{"0", "0:button", nil},
		{"1", "1:rtc", nil},
		{"2", "2:wol", nil},
		{"4", "4:ac", nil},
		{"3", "", ErrUnknownCause},
		{"", "", ErrFlagReply},
	}

	for _, tt := range tests {
		mcu := &scripted{replies: map[string]string{"intrp": tt.reply}}
		got, err := newTestController(mcu).PowerOnReason(context.Background())
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("PowerOnReason(%q) error = %v, want %v", tt.reply, err, tt.wantErr)
			continue
		}
		if err == nil && got.String() != tt.want {
			t.Errorf("PowerOnReason(%q) = %q, want %q", tt.reply, got.String(), tt.want)
		}
	}
}
