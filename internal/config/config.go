package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
	"gopkg.in/yaml.v3"
)

// OIDC holds the relying-party settings for the identity provider.
type OIDC struct {
	// Authority is the issuer URL of the Keycloak realm.
	Authority string `yaml:"authority"`
	ClientID  string `yaml:"client_id"`
	// RedirectPort is the loopback port the sign-in callback listens on.
	RedirectPort int `yaml:"redirect_port"`
}

// Config represents the root configuration structure.
type Config struct {
	// APIBaseURL is the cloud API origin, without the version prefix.
	APIBaseURL string `yaml:"api_base_url"`
	OIDC       OIDC   `yaml:"oidc"`

	CaptchaSiteKey string `yaml:"captcha_site_key"`

	// Auxiliary gateways, displayed alongside instances.
	TerminalURL string `yaml:"terminal_url"`
	SFTPURL     string `yaml:"sftp_url"`

	PollInterval time.Duration `yaml:"poll_interval"`
	LogFile      string        `yaml:"log_file"`
	SentryDSN    string        `yaml:"sentry_dsn"`
}

// Load reads and parses the YAML configuration file, then applies any
// NETSOC_* environment overrides on top.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		OIDC: OIDC{
			ClientID:     "netsocadmin",
			RedirectPort: 8450,
		},
		PollInterval: 15 * time.Second,
		LogFile:      "netsoc-cloud.log",
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}

	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")
	return &config, nil
}

// applyEnv overlays NETSOC_* environment variables onto the config, so
// deployments can override the file without editing it. NETSOC_API_URL
// becomes api.url and so on.
func applyEnv(config *Config) error {
	k := koanf.New(".")
	err := k.Load(env.Provider("NETSOC_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "NETSOC_")), "_", ".", -1)
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if v := k.String("api.url"); v != "" {
		config.APIBaseURL = v
	}
	if v := k.String("oidc.authority"); v != "" {
		config.OIDC.Authority = v
	}
	if v := k.String("oidc.client.id"); v != "" {
		config.OIDC.ClientID = v
	}
	if v := k.String("captcha.site.key"); v != "" {
		config.CaptchaSiteKey = v
	}
	if v := k.String("sentry.dsn"); v != "" {
		config.SentryDSN = v
	}

	return nil
}

// LoadOrPrompt attempts to load the config file, and returns an error with
// a helpful message if it fails.
func LoadOrPrompt(path string) (*Config, error) {
	config, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found at %s\n\nPlease create a cloud.config.yaml with the API base URL and OIDC authority.\nSee the example in the repository for the required format", path)
		}
		return nil, err
	}

	if config.APIBaseURL == "" {
		return nil, fmt.Errorf("api_base_url missing from config file %s", path)
	}
	if config.OIDC.Authority == "" {
		return nil, fmt.Errorf("oidc.authority missing from config file %s", path)
	}

	return config, nil
}
