// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorlink

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openebike/linkview/pkg/motorstate"
	"github.com/openebike/linkview/pkg/motorwire"
)

// Config is the on-disk configuration. All fields are optional; zero
// values fall back to the defaults below.
type Config struct {
	// Port is the serial device path, e.g. /dev/ttyUSB0.
	Port string `yaml:"port"`

	// Protocol forces a wire variant ("a".."d"). Empty means
	// auto-detect.
	Protocol string `yaml:"protocol"`

	GearCount            int `yaml:"gear_count"`
	WheelCircumferenceMM int `yaml:"wheel_circumference_mm"`
	WheelDiameterCode    int `yaml:"wheel_diameter_code"`
	WheelSizeCode        int `yaml:"wheel_size_code"`
	SpeedCapMph          int `yaml:"speed_cap_mph"`
	CurrentCapAmps       int `yaml:"current_cap_amps"`
	NominalVoltage       int `yaml:"nominal_voltage"`
	FeatureBits          int `yaml:"feature_bits"`
}

// DefaultConfig returns a configuration for a common 36V 26" bike.
func DefaultConfig() Config {
	return Config{
		Port:                 "/dev/ttyUSB0",
		GearCount:            5,
		WheelCircumferenceMM: 2075,
		WheelDiameterCode:    0x1A,
		WheelSizeCode:        0x02,
		SpeedCapMph:          20,
		CurrentCapAmps:       15,
		NominalVoltage:       36,
		FeatureBits:          0x03,
	}
}

// LoadConfig reads a YAML configuration file, filling unspecified fields
// with defaults. A missing file is not an error; the defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.GearCount < 1 || c.GearCount > 12 {
		return fmt.Errorf("gear_count %d out of range 1..12", c.GearCount)
	}
	if c.WheelCircumferenceMM < 500 || c.WheelCircumferenceMM > 3500 {
		return fmt.Errorf("wheel_circumference_mm %d out of range 500..3500", c.WheelCircumferenceMM)
	}
	if _, err := parseProtocol(c.Protocol); err != nil {
		return err
	}
	return nil
}

// Profile builds the rider profile handed to the encoder and decoder.
func (c Config) Profile() motorstate.Profile {
	return motorstate.Profile{
		GearCount:            c.GearCount,
		WheelCircumferenceMM: c.WheelCircumferenceMM,
		WheelDiameterCode:    uint8(c.WheelDiameterCode),
		WheelSizeCode:        uint8(c.WheelSizeCode),
		SpeedCapMph:          c.SpeedCapMph,
		CurrentCapAmps:       c.CurrentCapAmps,
		NominalVoltage:       c.NominalVoltage,
		BFeatureBits:         uint8(c.FeatureBits),
	}
}

// ForcedProtocol returns the forced wire variant, or ProtoNone for
// auto-detection.
func (c Config) ForcedProtocol() motorwire.Protocol {
	p, _ := parseProtocol(c.Protocol)
	return p
}

func parseProtocol(s string) (motorwire.Protocol, error) {
	switch s {
	case "", "auto":
		return motorwire.ProtoNone, nil
	case "a", "A":
		return motorwire.ProtoA, nil
	case "b", "B":
		return motorwire.ProtoB, nil
	case "c", "C":
		return motorwire.ProtoC, nil
	case "d", "D":
		return motorwire.ProtoD, nil
	default:
		return motorwire.ProtoNone, fmt.Errorf("unknown protocol %q (want a, b, c, d or auto)", s)
	}
}
