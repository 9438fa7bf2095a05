// Package config loads, validates and normalizes the installation
// configuration: strip geometry, hardware settings, startup state and
// metrics export.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Strips   []StripConfig  `yaml:"strips"`
	Hardware HardwareConfig `yaml:"hardware"`
	Startup  StartupConfig  `yaml:"startup"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ---- STRIP ----

type StripConfig struct {
	ID          string `yaml:"id"`
	GPIOPin     int    `yaml:"gpio_pin"`
	LEDCount    int    `yaml:"led_count"`
	LEDStart    int    `yaml:"led_start"`
	LEDEnd      int    `yaml:"led_end"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
}

// ---- HARDWARE ----

type HardwareConfig struct {
	FreqHz     int  `yaml:"freq_hz"`
	Brightness *int `yaml:"brightness"` // 0-255; nil => default
	Invert     bool `yaml:"invert"`
}

// ---- STARTUP ----

type StartupConfig struct {
	Pattern    string `yaml:"pattern"`
	Brightness *int   `yaml:"brightness"` // overrides hardware brightness

	// PatternParams maps pattern name to parameter overrides applied when
	// that pattern is the startup pattern.
	PatternParams map[string]map[string]ParamSetting `yaml:"pattern_params"`
}

// ---- METRICS ----

type MetricsConfig struct {
	ExportPath      string `yaml:"export_path"` // empty disables export
	ExportIntervalS int    `yaml:"export_interval_s"`
}

// ParamSetting is one pattern parameter from yaml: either a scalar number
// or a [r, g, b] color triple.
type ParamSetting struct {
	IsColor bool
	Number  float64
	Color   [3]uint8
}

func (p *ParamSetting) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("config: pattern parameter must be a number: %w", err)
		}
		p.IsColor = false
		p.Number = v
		return nil

	case yaml.SequenceNode:
		var triple []int
		if err := node.Decode(&triple); err != nil {
			return fmt.Errorf("config: pattern parameter color must be a list: %w", err)
		}
		if len(triple) != 3 {
			return fmt.Errorf("config: pattern parameter color needs 3 channels, got %d", len(triple))
		}
		p.IsColor = true
		for i, ch := range triple {
			if ch < 0 || ch > 255 {
				return fmt.Errorf("config: color channel %d out of range 0-255", ch)
			}
			p.Color[i] = uint8(ch)
		}
		return nil

	default:
		return fmt.Errorf("config: pattern parameter must be a number or [r, g, b]")
	}
}
