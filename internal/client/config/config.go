// Package config assembles the CLI configuration from defaults, an optional
// JSON config file (-c/-config) and command-line flags, applied in that
// order.
package config

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	"opsboard/internal/flagx"
)

type Config struct {
	// ServerBaseURL is the OpsBoard server address, scheme included.
	ServerBaseURL string
	// RequestTimeout bounds every API call.
	RequestTimeout time.Duration
	// CredentialsFile is where the token pair is persisted between runs.
	CredentialsFile string
}

const (
	defaultServerBaseURL  = "http://localhost:8080"
	defaultRequestTimeout = 15 * time.Second
)

func defaultCredentialsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tokens.json"
	}
	return filepath.Join(dir, "opsboard", "tokens.json")
}

// New builds the effective configuration.
func New() *Config {
	c := &Config{
		ServerBaseURL:   defaultServerBaseURL,
		RequestTimeout:  defaultRequestTimeout,
		CredentialsFile: defaultCredentialsFile(),
	}
	c.parseJson()
	c.parseFlags()
	return c
}

type jsonConfig struct {
	ServerBaseURL   string `json:"server_base_url"`
	RequestTimeout  string `json:"request_timeout"`
	CredentialsFile string `json:"credentials_file"`
}

func (c *Config) parseJson() {
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
	if jc.ServerBaseURL != "" {
		c.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.RequestTimeout != "" {
		if d, err := time.ParseDuration(jc.RequestTimeout); err == nil {
			c.RequestTimeout = d
		}
	}
	if jc.CredentialsFile != "" {
		c.CredentialsFile = jc.CredentialsFile
	}
}

func (c *Config) parseFlags() {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-f"})

	fs := flag.NewFlagSet("opsboard", flag.ContinueOnError)
	fs.StringVar(&c.ServerBaseURL, "a", c.ServerBaseURL, "server base URL")
	fs.DurationVar(&c.RequestTimeout, "t", c.RequestTimeout, "request timeout")
	fs.StringVar(&c.CredentialsFile, "f", c.CredentialsFile, "credentials file path")
	_ = fs.Parse(args)
}
