package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/finn/internal/common"
)

// Poll backoff strategies.
const (
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
)

// Config holds the settings of one device engine.
type Config struct {
	MakerID       string
	HostName      string
	DeviceName    string
	BluetoothName string
	BuildDate     string

	HasWifi           bool
	MultiPair         bool
	AlternativeIDName string
	NewInstall        bool

	BaseURL      string
	DatabasePath string

	PollInterval        time.Duration
	MaxPollInterval     time.Duration
	PollBackoff         string
	HTTPTimeout         time.Duration
	OnlineCheckInterval time.Duration
	// ProbeAddr is the host:port dialled by the reachability monitor.
	// Derived from BaseURL when empty.
	ProbeAddr string

	// KeyPassphrase seals the device private key at rest when set.
	KeyPassphrase string
	// ServerPublicKey overrides the pinned CORE key (PEM, base64 or DER).
	ServerPublicKey string

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DeviceName = "finn device"
	c.BluetoothName = "finn"
	c.BaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "finn.db"
	c.PollInterval = 10 * time.Second
	c.MaxPollInterval = 5 * time.Minute
	c.PollBackoff = BackoffConstant
	c.HTTPTimeout = 15 * time.Second
	c.OnlineCheckInterval = 5 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Load builds a Config from defaults, the optional file at path, then the
// explicitly set flags. fl may be nil.
func Load(path string, fl *Flags) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, common.E(common.KindConfiguration, "config.Load", err)
		}
	}
	fl.Apply(cfg)
	return cfg, nil
}

// Validate checks the fields an engine cannot start without.
func (c *Config) Validate() error {
	const op = "config.Validate"

	if len(c.MakerID) != common.MakerIDLength {
		return common.E(common.KindConfiguration, op, common.ErrMakerIDInvalid)
	}
	if strings.TrimSpace(c.HostName) == "" {
		return common.E(common.KindConfiguration, op, common.ErrHostNameEmpty)
	}
	if n := utf8.RuneCountInString(c.BluetoothName); n < 1 || n > common.MaxBluetoothNameLength {
		return common.E(common.KindConfiguration, op, common.ErrBluetoothNameInvalid)
	}
	if c.MultiPair && strings.TrimSpace(c.AlternativeIDName) == "" {
		return common.E(common.KindConfiguration, op, common.ErrAlternativeIDNameEmpty)
	}
	if _, err := c.baseURL(); err != nil {
		return common.E(common.KindConfiguration, op, err)
	}
	switch c.PollBackoff {
	case "", BackoffConstant, BackoffExponential:
	default:
		return common.E(common.KindConfiguration, op,
			fmt.Errorf("%w: poll backoff %q", common.ErrInvalidSetting, c.PollBackoff))
	}
	if c.PollInterval < 0 || c.HTTPTimeout < 0 || c.OnlineCheckInterval < 0 {
		return common.E(common.KindConfiguration, op,
			fmt.Errorf("%w: negative interval", common.ErrInvalidSetting))
	}
	return nil
}

// ProbeAddress returns ProbeAddr, or the host:port of BaseURL when unset.
func (c *Config) ProbeAddress() string {
	if c.ProbeAddr != "" {
		return c.ProbeAddr
	}
	u, err := c.baseURL()
	if err != nil {
		return ""
	}
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func (c *Config) baseURL() (*url.URL, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %w", common.ErrInvalidSetting, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", common.ErrInvalidSetting, c.BaseURL)
	}
	return u, nil
}
