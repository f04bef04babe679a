package config

import (
	"encoding/json"
	"log"
	"os"
)

type Config struct {
	App          AppConfig                   `json:"app"`
	Gateways     map[string]GatewayConfig    `json:"gateways"`
	Providers    map[string]ProviderConfig   `json:"providers"`
	Tools        map[string]ToolConfig       `json:"tools"`
	Capabilities map[string]CapabilityConfig `json:"capabilities"`
	Audit        AuditConfig                 `json:"audit"`
	Governance   GovernanceConfig            `json:"governance"`
}

type AppConfig struct {
	Name       string `json:"name"`
	ListenAddr string `json:"listen_addr"`
}

type GatewayConfig struct {
	Token         string `json:"token"`
	SigningSecret string `json:"signing_secret"`
	Enabled       bool   `json:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type ToolConfig struct {
	Token   string `json:"token"`
	AppKey  string `json:"app_key,omitempty"`
	Owner   string `json:"owner,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

// CapabilityConfig overrides the built-in capability table, so a deployment
// can switch a tool on without a rebuild.
type CapabilityConfig struct {
	Supported bool     `json:"supported"`
	Actions   []string `json:"actions"`
	Message   string   `json:"message,omitempty"`
}

type AuditConfig struct {
	Path string `json:"path"`
}

type GovernanceConfig struct {
	DeniedActions  []string `json:"denied_actions"`
	DeniedPatterns []string `json:"denied_patterns"`
}

func LoadConfig(path string) *Config {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	cfg.applyEnvOverrides()
	return &cfg
}

// applyEnvOverrides lets secrets come from the environment; the config file
// should never contain production tokens.
func (c *Config) applyEnvOverrides() {
	override := func(envKey string, dst *string) {
		if v := os.Getenv(envKey); v != "" {
			*dst = v
		}
	}

	if slack, ok := c.Gateways["slack"]; ok {
		override("SLACK_BOT_TOKEN", &slack.Token)
		override("SLACK_SIGNING_SECRET", &slack.SigningSecret)
		c.Gateways["slack"] = slack
	}
	for name, p := range c.Providers {
		switch name {
		case "openai", "openrouter":
			override("OPENAI_API_KEY", &p.APIKey)
		}
		c.Providers[name] = p
	}
	for name, t := range c.Tools {
		switch name {
		case "github":
			override("GITHUB_TOKEN", &t.Token)
		case "gitlab":
			override("GITLAB_TOKEN", &t.Token)
		case "datadog":
			override("DATADOG_API_KEY", &t.Token)
			override("DATADOG_APP_KEY", &t.AppKey)
		case "pagerduty":
			override("PAGERDUTY_API_KEY", &t.Token)
		}
		c.Tools[name] = t
	}
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetSlackConfig returns slack gateway config if enabled
func (c *Config) GetSlackConfig() (GatewayConfig, bool) {
	sl, ok := c.Gateways["slack"]
	if ok && sl.Enabled {
		return sl, true
	}
	return GatewayConfig{}, false
}

// GetTool returns a tool's config; the zero value means "not configured".
func (c *Config) GetTool(name string) ToolConfig {
	return c.Tools[name]
}
