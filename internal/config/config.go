// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the YAML board description used by r8cctl.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Board BoardConfig `yaml:"board"`
	Keys  KeysConfig  `yaml:"keys"`
	LEDs  LEDsConfig  `yaml:"leds"`
	Power PowerConfig `yaml:"power"`
}

// ---- BOARD ----

type BoardConfig struct {
	Model          string `yaml:"model"` // expected model prefix, empty accepts any
	Baud           int    `yaml:"baud"`
	ReplyTimeoutMs int    `yaml:"reply_timeout_ms"`
}

// ---- KEYS ----

type KeysConfig struct {
	Mode           string         `yaml:"mode"` // "event" or "polled"
	PollIntervalMs int            `yaml:"poll_interval_ms"`
	Buttons        []ButtonConfig `yaml:"buttons"`
}

type ButtonConfig struct {
	Label   string `yaml:"label"`
	Keycode string `yaml:"keycode"` // one lowercase letter
	Code    string `yaml:"code"`
}

// ---- LEDS ----

type LEDsConfig struct {
	HDD    []HDDConfig `yaml:"hdd"`
	Status string      `yaml:"status"` // initial status mode
}

type HDDConfig struct {
	Port  int    `yaml:"port"`
	Color string `yaml:"color"` // "red" or "multi"
}

// ---- POWER ----

type PowerConfig struct {
	WakeOnLAN   bool   `yaml:"wake_on_lan"`
	WakeCommand string `yaml:"wake_command"` // run before power-off when WoL is enabled
	SettleMs    int    `yaml:"settle_ms"`
}

// Load reads and parses a board file. It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a board description
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse board config: %w", err)
	}
	return &cfg, nil
}
