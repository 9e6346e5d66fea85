package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays OPSBOARD_* environment variables, loading a local .env
// file first when one exists.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv("OPSBOARD_HTTP_ADDR"); ok {
		cfg.EndpointAddrHTTP = v
	}
	if v, ok := os.LookupEnv("OPSBOARD_DATABASE_DSN"); ok {
		cfg.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("OPSBOARD_SECRET_KEY"); ok {
		cfg.SecretKey = v
	}
	if v, ok := os.LookupEnv("OPSBOARD_ACCESS_TOKEN_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AccessTokenValidityDuration = d
		}
	}
	if v, ok := os.LookupEnv("OPSBOARD_REFRESH_TOKEN_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RefreshTokenValidityDuration = d
		}
	}
	if v, ok := os.LookupEnv("OPSBOARD_AUTO_CREATE_USERS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AutoCreateUsers = b
		}
	}
	if v, ok := os.LookupEnv("OPSBOARD_CORS_ORIGINS"); ok {
		cfg.CORSAllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("OPSBOARD_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := os.LookupEnv("OPSBOARD_LOGIN_RATE_PER_MINUTE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRatePerMinute = n
		}
	}
	if v, ok := os.LookupEnv("OPSBOARD_S3_ROOT_USER"); ok {
		cfg.S3RootUser = v
	}
	if v, ok := os.LookupEnv("OPSBOARD_S3_ROOT_PASSWORD"); ok {
		cfg.S3RootPassword = v
	}
	if v, ok := os.LookupEnv("OPSBOARD_S3_BUCKET"); ok {
		cfg.S3Bucket = v
	}
	if v, ok := os.LookupEnv("OPSBOARD_S3_REGION"); ok {
		cfg.S3Region = v
	}
	if v, ok := os.LookupEnv("OPSBOARD_S3_ENDPOINT"); ok {
		cfg.S3BaseEndpoint = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
