// Package config resolves the registry endpoint and credential for a
// run. Values layer in order: built-in defaults, an optional YAML
// file, process environment, then command-line flags. The resolved
// Config is constructed once and passed into the client and
// orchestrator; nothing below this package reads the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for missing required settings. The CLI maps these
// to exit code 2 (configuration/authentication failure).
var (
	ErrMissingBaseURL = errors.New("config: missing registry base URL (set --base-url, APPTRUST_BASE_URL, or JFROG_URL)")
	ErrMissingToken   = errors.New("config: missing access token (set --token or JF_OIDC_TOKEN; ensure the JFrog CLI OIDC setup ran)")
)

type Config struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"-"`
	// Timeout is the per-call registry timeout in seconds.
	Timeout int `yaml:"timeout"`
}

func Default() *Config {
	return &Config{
		Timeout: 600,
	}
}

// RequestTimeout returns the per-call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Load reads a YAML config file over the defaults. A missing file is
// not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 600
	}
	return cfg, nil
}

// MergeEnv layers process environment over cfg. JFROG_URL takes
// precedence and has the AppTrust API prefix appended; otherwise
// APPTRUST_BASE_URL is used verbatim. The token comes from
// JF_OIDC_TOKEN.
func MergeEnv(cfg *Config) *Config {
	if url := strings.TrimSpace(os.Getenv("JFROG_URL")); url != "" {
		cfg.BaseURL = strings.TrimSuffix(url, "/") + "/apptrust/api/v1"
	} else if url := strings.TrimSpace(os.Getenv("APPTRUST_BASE_URL")); url != "" {
		cfg.BaseURL = url
	}
	if token := strings.TrimSpace(os.Getenv("JF_OIDC_TOKEN")); token != "" {
		cfg.Token = token
	}
	return cfg
}

// MergeFlags layers explicit command-line flags over cfg. Flags win
// over every other source.
func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	if v, err := flags.GetString("base-url"); err == nil && v != "" {
		cfg.BaseURL = v
	}
	if v, err := flags.GetString("token"); err == nil && v != "" {
		cfg.Token = v
	}
	if v, err := flags.GetDuration("timeout"); err == nil && v > 0 {
		cfg.Timeout = int(v / time.Second)
	}
	return cfg
}

// Validate reports the first missing required setting. It runs before
// any network call so misconfiguration never reaches the registry.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if strings.TrimSpace(c.Token) == "" {
		return ErrMissingToken
	}
	return nil
}
