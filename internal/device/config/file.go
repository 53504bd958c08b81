package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/finn/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape. Pointer fields tell an absent key from a
// zero value so a file only overrides what it names.
type fileConfig struct {
	MakerID       *string `json:"maker_id" yaml:"maker_id"`
	HostName      *string `json:"host_name" yaml:"host_name"`
	DeviceName    *string `json:"device_name" yaml:"device_name"`
	BluetoothName *string `json:"bluetooth_name" yaml:"bluetooth_name"`
	BuildDate     *string `json:"build_date" yaml:"build_date"`

	HasWifi           *bool   `json:"has_wifi" yaml:"has_wifi"`
	MultiPair         *bool   `json:"multi_pair" yaml:"multi_pair"`
	AlternativeIDName *string `json:"alternative_id_name" yaml:"alternative_id_name"`
	NewInstall        *bool   `json:"new_install" yaml:"new_install"`

	BaseURL      *string `json:"base_url" yaml:"base_url"`
	DatabasePath *string `json:"database_path" yaml:"database_path"`

	PollInterval        *timex.Duration `json:"poll_interval" yaml:"poll_interval"`
	MaxPollInterval     *timex.Duration `json:"max_poll_interval" yaml:"max_poll_interval"`
	PollBackoff         *string         `json:"poll_backoff" yaml:"poll_backoff"`
	HTTPTimeout         *timex.Duration `json:"http_timeout" yaml:"http_timeout"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	ProbeAddr           *string         `json:"probe_addr" yaml:"probe_addr"`

	KeyPassphrase   *string `json:"key_passphrase" yaml:"key_passphrase"`
	ServerPublicKey *string `json:"server_public_key" yaml:"server_public_key"`

	LogLevel    *string `json:"log_level" yaml:"log_level"`
	LogFormat   *string `json:"log_format" yaml:"log_format"`
	MetricsAddr *string `json:"metrics_addr" yaml:"metrics_addr"`
}

// LoadFile overlays c with the values found in the file at path.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	fc.apply(c)
	return nil
}

func (fc *fileConfig) apply(c *Config) {
	setString(&c.MakerID, fc.MakerID)
	setString(&c.HostName, fc.HostName)
	setString(&c.DeviceName, fc.DeviceName)
	setString(&c.BluetoothName, fc.BluetoothName)
	setString(&c.BuildDate, fc.BuildDate)
	setBool(&c.HasWifi, fc.HasWifi)
	setBool(&c.MultiPair, fc.MultiPair)
	setString(&c.AlternativeIDName, fc.AlternativeIDName)
	setBool(&c.NewInstall, fc.NewInstall)
	setString(&c.BaseURL, fc.BaseURL)
	setString(&c.DatabasePath, fc.DatabasePath)
	setString(&c.PollBackoff, fc.PollBackoff)
	setString(&c.ProbeAddr, fc.ProbeAddr)
	setString(&c.KeyPassphrase, fc.KeyPassphrase)
	setString(&c.ServerPublicKey, fc.ServerPublicKey)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.MetricsAddr, fc.MetricsAddr)

	if fc.PollInterval != nil {
		c.PollInterval = fc.PollInterval.Duration
	}
	if fc.MaxPollInterval != nil {
		c.MaxPollInterval = fc.MaxPollInterval.Duration
	}
	if fc.HTTPTimeout != nil {
		c.HTTPTimeout = fc.HTTPTimeout.Duration
	}
	if fc.OnlineCheckInterval != nil {
		c.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
