package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `yaml:"app"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Workflow  WorkflowConfig            `yaml:"workflow"`
	Warranty  WarrantyConfig            `yaml:"warranty"`
	SMTP      SMTPConfig                `yaml:"smtp"`
	Notifiers map[string]NotifierConfig `yaml:"notifiers"`
}

type AppConfig struct {
	Name            string `yaml:"name"`
	InstructionsDir string `yaml:"instructions_dir"`
	SpoolDir        string `yaml:"spool_dir"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type WorkflowConfig struct {
	// Mode selects the dispatch strategy: "steps" for the state-machine
	// workflow, "tools" for the legacy function-calling mode.
	Mode                string `yaml:"mode"`
	EntryStep           string `yaml:"entry_step"`
	MaxSteps            int    `yaml:"max_steps"`
	RetryOnParseFailure bool   `yaml:"retry_on_parse_failure"`
	RunTimeoutSeconds   int    `yaml:"run_timeout_seconds"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

type WarrantyConfig struct {
	// Source selects the lookup backend: "sqlite" or "portal".
	Source         string `yaml:"source"`
	DBPath         string `yaml:"db_path"`
	PortalURL      string `yaml:"portal_url,omitempty"`
	PortalSelector string `yaml:"portal_selector,omitempty"`
}

type SMTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	From string `yaml:"from"`
}

type NotifierConfig struct {
	Token     string `yaml:"token"`
	ChatID    int64  `yaml:"chat_id,omitempty"`
	ChannelID string `yaml:"channel_id,omitempty"`
	Enabled   bool   `yaml:"enabled"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %v", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %v", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.InstructionsDir == "" {
		c.App.InstructionsDir = "./instructions"
	}
	if c.App.SpoolDir == "" {
		c.App.SpoolDir = "./spool"
	}
	if c.Workflow.Mode == "" {
		c.Workflow.Mode = "steps"
	}
	if c.Workflow.EntryStep == "" {
		c.Workflow.EntryStep = "01-extract-serial"
	}
	if c.Workflow.MaxSteps <= 0 {
		c.Workflow.MaxSteps = 10
	}
	if c.Workflow.RunTimeoutSeconds <= 0 {
		c.Workflow.RunTimeoutSeconds = 120
	}
	if c.Workflow.PollIntervalSeconds <= 0 {
		c.Workflow.PollIntervalSeconds = 30
	}
	if c.Warranty.Source == "" {
		c.Warranty.Source = "sqlite"
	}
	if c.Warranty.DBPath == "" {
		c.Warranty.DBPath = "warranty.db"
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

// GetNotifier returns a notifier config if enabled
func (c *Config) GetNotifier(name string) (NotifierConfig, bool) {
	n, ok := c.Notifiers[name]
	if ok && n.Enabled {
		return n, true
	}
	return NotifierConfig{}, false
}
