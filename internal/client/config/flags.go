package config

import (
	"flag"
	"os"
	"time"

	"github.com/obralink/obralink/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   address of the mirror server (default from Config)
//	-d string   path of the local cache database
//	-i int      tenant poll interval in seconds
//	-g int      global poll interval in seconds
//
// Args are filtered through flagx.FilterArgs so flags owned by other
// components are left alone.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-i", "-g"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address of the mirror server")
	fs.StringVar(&cfg.CacheDSN, "d", cfg.CacheDSN, "path of the local cache database")
	tenantPoll := fs.Int("i", int(cfg.TenantPollInterval.Seconds()), "tenant poll interval (in seconds)")
	globalPoll := fs.Int("g", int(cfg.GlobalPollInterval.Seconds()), "global poll interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.TenantPollInterval = time.Duration(*tenantPoll) * time.Second
	cfg.GlobalPollInterval = time.Duration(*globalPoll) * time.Second
}
