package config

import (
	"encoding/json"
	"os"

	"github.com/obralink/obralink/internal/flagx"
	"github.com/obralink/obralink/internal/timex"
)

// JsonConfig is the DTO for JSON unmarshalling. Intervals may be given as
// strings like "5s" or as integer nanoseconds (timex.Duration).
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	CacheDSN           string         `json:"cache_dsn"`
	TenantPollInterval timex.Duration `json:"tenant_poll_interval"`
	GlobalPollInterval timex.Duration `json:"global_poll_interval"`
}

// parseJson overlays cfg with values from the JSON file named by -c/-config.
// Missing file path means no overlay; read or parse errors panic, since a
// config file that exists but cannot be used is a deployment mistake.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.CacheDSN != "" {
		cfg.CacheDSN = jc.CacheDSN
	}
	if jc.TenantPollInterval.Duration != 0 {
		cfg.TenantPollInterval = jc.TenantPollInterval.Duration
	}
	if jc.GlobalPollInterval.Duration != 0 {
		cfg.GlobalPollInterval = jc.GlobalPollInterval.Duration
	}
}
