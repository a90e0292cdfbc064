// Package config handles configuration for the device-side sync layer,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for a device.
//
// TenantPollInterval drives the reconcilers watching the tenant's own
// slices (accounts, records, messages, transactions); GlobalPollInterval
// drives the platform-wide slices (coupons, notifications), where staleness
// is cheaper. Polling is the correctness backstop for the live channel, so
// neither interval may be zero.
type Config struct {
	ServerEndpointAddr string
	CacheDSN           string
	TenantPollInterval time.Duration
	GlobalPollInterval time.Duration
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.CacheDSN = "obralink.db"
	c.TenantPollInterval = 5 * time.Second
	c.GlobalPollInterval = 15 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags. Later sources win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
