// Package config loads runtime configuration for a finn device.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with --config. Files ending in .yaml or
//     .yml are read as YAML, anything else as JSON.
//  3. Command-line flags (see AddFlags). Only flags set explicitly override
//     earlier values.
//
// # File schema
//
// Intervals use timex.Duration, so they may be strings like "10s" or integer
// nanoseconds:
//
//	{
//	  "maker_id": "8cd5e2a0-3b4f-4f0e-9d55-2f7e1c9a0b11",
//	  "host_name": "Coffee machine",
//	  "bluetooth_name": "finn",
//	  "base_url": "https://core.example.com/api",
//	  "poll_interval": "10s"
//	}
//
// Validate reports configuration errors with kind common.KindConfiguration.
package config
