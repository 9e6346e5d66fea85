package config

import (
	"encoding/json"
	"os"
	"time"

	"opsboard/internal/flagx"
)

type jsonConfig struct {
	EndpointAddrHTTP   string   `json:"http_addr"`
	DatabaseDSN        string   `json:"database_dsn"`
	SecretKey          string   `json:"secret_key"`
	AccessTokenTTL     string   `json:"access_token_ttl"`
	RefreshTokenTTL    string   `json:"refresh_token_ttl"`
	AutoCreateUsers    *bool    `json:"auto_create_users"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins"`
	RedisAddr          string   `json:"redis_addr"`
	LoginRatePerMinute *int     `json:"login_rate_per_minute"`
	S3RootUser         string   `json:"s3_root_user"`
	S3RootPassword     string   `json:"s3_root_password"`
	S3Bucket           string   `json:"s3_bucket"`
	S3Region           string   `json:"s3_region"`
	S3BaseEndpoint     string   `json:"s3_base_endpoint"`
}

// parseJson overlays values from the JSON file named by -c/-config, when
// present. Unreadable or malformed files are ignored.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return
	}

	if jc.EndpointAddrHTTP != "" {
		cfg.EndpointAddrHTTP = jc.EndpointAddrHTTP
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.AccessTokenTTL != "" {
		if d, err := time.ParseDuration(jc.AccessTokenTTL); err == nil {
			cfg.AccessTokenValidityDuration = d
		}
	}
	if jc.RefreshTokenTTL != "" {
		if d, err := time.ParseDuration(jc.RefreshTokenTTL); err == nil {
			cfg.RefreshTokenValidityDuration = d
		}
	}
	if jc.AutoCreateUsers != nil {
		cfg.AutoCreateUsers = *jc.AutoCreateUsers
	}
	if len(jc.CORSAllowedOrigins) > 0 {
		cfg.CORSAllowedOrigins = jc.CORSAllowedOrigins
	}
	if jc.RedisAddr != "" {
		cfg.RedisAddr = jc.RedisAddr
	}
	if jc.LoginRatePerMinute != nil {
		cfg.LoginRatePerMinute = *jc.LoginRatePerMinute
	}
	if jc.S3RootUser != "" {
		cfg.S3RootUser = jc.S3RootUser
	}
	if jc.S3RootPassword != "" {
		cfg.S3RootPassword = jc.S3RootPassword
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3BaseEndpoint != "" {
		cfg.S3BaseEndpoint = jc.S3BaseEndpoint
	}
}
