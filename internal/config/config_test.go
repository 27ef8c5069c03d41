package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cloud.config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
api_base_url: https://api.netsoc.cloud/
oidc:
  authority: https://keycloak.netsoc.co/auth/realms/freeipa
captcha_site_key: site-key
poll_interval: 30s
`)

	config, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if config.APIBaseURL != "https://api.netsoc.cloud" {
		t.Errorf("expected trailing slash to be stripped, got %q", config.APIBaseURL)
	}
	if config.OIDC.ClientID != "netsocadmin" {
		t.Errorf("expected default client id, got %q", config.OIDC.ClientID)
	}
	if config.OIDC.RedirectPort != 8450 {
		t.Errorf("expected default redirect port, got %d", config.OIDC.RedirectPort)
	}
	if config.PollInterval != 30*time.Second {
		t.Errorf("expected poll interval override, got %s", config.PollInterval)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NETSOC_API_URL", "https://staging.netsoc.cloud")
	t.Setenv("NETSOC_OIDC_AUTHORITY", "https://keycloak.staging.netsoc.co/auth/realms/freeipa")

	path := writeConfig(t, `
api_base_url: https://api.netsoc.cloud
oidc:
  authority: https://keycloak.netsoc.co/auth/realms/freeipa
`)

	config, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if config.APIBaseURL != "https://staging.netsoc.cloud" {
		t.Errorf("expected environment to override api url, got %q", config.APIBaseURL)
	}
	if !strings.Contains(config.OIDC.Authority, "staging") {
		t.Errorf("expected environment to override authority, got %q", config.OIDC.Authority)
	}
}

func TestLoadOrPromptMissingFile(t *testing.T) {
	_, err := LoadOrPrompt(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
	if !strings.Contains(err.Error(), "cloud.config.yaml") {
		t.Errorf("expected guidance in error, got %q", err)
	}
}

func TestLoadOrPromptMissingKeys(t *testing.T) {
	path := writeConfig(t, `
oidc:
  authority: https://keycloak.netsoc.co/auth/realms/freeipa
`)

	if _, err := LoadOrPrompt(path); err == nil {
		t.Fatal("expected an error when api_base_url is missing")
	}
}
