package config

import (
	"github.com/spf13/pflag"
)

// Flags binds Config fields to a pflag.FlagSet. Values are kept apart from
// the Config so that defaults and file values survive unset flags.
type Flags struct {
	fs *pflag.FlagSet
	v  Config
}

// AddFlags registers the device flags on fs.
func AddFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	var d Config
	d.LoadDefaults()

	fs.StringVar(&f.v.MakerID, "maker-id", "", "maker id issued by CORE (36 characters)")
	fs.StringVar(&f.v.HostName, "host-name", "", "human readable device name shown to app users")
	fs.StringVar(&f.v.DeviceName, "device-name", d.DeviceName, "device model name")
	fs.StringVar(&f.v.BluetoothName, "bluetooth-name", d.BluetoothName, "advertised bluetooth name (1-8 characters)")
	fs.StringVar(&f.v.BuildDate, "build-date", "", "firmware build date reported over bluetooth")
	fs.BoolVar(&f.v.HasWifi, "wifi", false, "device can be configured with WiFi credentials over bluetooth")
	fs.BoolVar(&f.v.MultiPair, "multi-pair", false, "device pairs with several app users")
	fs.StringVar(&f.v.AlternativeIDName, "alternative-id-name", "", "display name of the alternative identifier (multi-pair)")
	fs.BoolVar(&f.v.NewInstall, "new-install", false, "wipe persisted data before starting")
	fs.StringVar(&f.v.BaseURL, "base-url", d.BaseURL, "CORE base url")
	fs.StringVarP(&f.v.DatabasePath, "db", "d", d.DatabasePath, "path of the local database")
	fs.DurationVar(&f.v.PollInterval, "poll-interval", d.PollInterval, "pairing poll interval")
	fs.DurationVar(&f.v.MaxPollInterval, "max-poll-interval", d.MaxPollInterval, "upper bound of exponential poll backoff")
	fs.StringVar(&f.v.PollBackoff, "poll-backoff", d.PollBackoff, "pairing poll backoff: constant or exponential")
	fs.DurationVar(&f.v.HTTPTimeout, "http-timeout", d.HTTPTimeout, "timeout of one CORE request")
	fs.DurationVarP(&f.v.OnlineCheckInterval, "online-check-interval", "i", d.OnlineCheckInterval, "reachability probe interval")
	fs.StringVar(&f.v.ProbeAddr, "probe-addr", "", "host:port probed for reachability (default derived from base url)")
	fs.StringVar(&f.v.ServerPublicKey, "server-public-key", "", "override of the pinned CORE public key")
	fs.StringVar(&f.v.LogLevel, "log-level", d.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&f.v.LogFormat, "log-format", d.LogFormat, "log format: text or json")
	fs.StringVar(&f.v.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	return f
}

// Apply copies every explicitly set flag into cfg. A nil receiver does
// nothing.
func (f *Flags) Apply(cfg *Config) {
	if f == nil {
		return
	}
	f.fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "maker-id":
			cfg.MakerID = f.v.MakerID
		case "host-name":
			cfg.HostName = f.v.HostName
		case "device-name":
			cfg.DeviceName = f.v.DeviceName
		case "bluetooth-name":
			cfg.BluetoothName = f.v.BluetoothName
		case "build-date":
			cfg.BuildDate = f.v.BuildDate
		case "wifi":
			cfg.HasWifi = f.v.HasWifi
		case "multi-pair":
			cfg.MultiPair = f.v.MultiPair
		case "alternative-id-name":
			cfg.AlternativeIDName = f.v.AlternativeIDName
		case "new-install":
			cfg.NewInstall = f.v.NewInstall
		case "base-url":
			cfg.BaseURL = f.v.BaseURL
		case "db":
			cfg.DatabasePath = f.v.DatabasePath
		case "poll-interval":
			cfg.PollInterval = f.v.PollInterval
		case "max-poll-interval":
			cfg.MaxPollInterval = f.v.MaxPollInterval
		case "poll-backoff":
			cfg.PollBackoff = f.v.PollBackoff
		case "http-timeout":
			cfg.HTTPTimeout = f.v.HTTPTimeout
		case "online-check-interval":
			cfg.OnlineCheckInterval = f.v.OnlineCheckInterval
		case "probe-addr":
			cfg.ProbeAddr = f.v.ProbeAddr
		case "server-public-key":
			cfg.ServerPublicKey = f.v.ServerPublicKey
		case "log-level":
			cfg.LogLevel = f.v.LogLevel
		case "log-format":
			cfg.LogFormat = f.v.LogFormat
		case "metrics-addr":
			cfg.MetricsAddr = f.v.MetricsAddr
		}
	})
}
