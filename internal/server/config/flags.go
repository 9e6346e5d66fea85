package config

import (
	"flag"
	"os"

	"opsboard/internal/flagx"
)

// parseFlags overlays command-line flags on top of whatever the earlier
// layers produced.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-r"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.EndpointAddrHTTP, "a", cfg.EndpointAddrHTTP, "HTTP bind address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "PostgreSQL DSN")
	fs.StringVar(&cfg.SecretKey, "k", cfg.SecretKey, "JWT signing secret")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "Redis address for rate limiting")
	_ = fs.Parse(args)
}
