// Package config loads the declarative fleet configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the declarative input for one provisioning pass.
type Config struct {
	// Namespace is where all fleet resources live.
	Namespace string `yaml:"namespace"`

	// Models is the ordered list of catalog model ids to deploy. Order is
	// preserved in the published registry document.
	Models []string `yaml:"models"`

	// Scheduling optionally attaches start/stop triggers to every endpoint.
	Scheduling Scheduling `yaml:"scheduling"`

	// HubSecret references the Kubernetes secret holding the hub access
	// token for gated models. Optional.
	HubSecret SecretRef `yaml:"hub_secret"`

	// Shared carries the opaque placement handles from the shared
	// infrastructure layer.
	Shared Shared `yaml:"shared"`

	// RunnerImage overrides the image schedule triggers run.
	RunnerImage string `yaml:"runner_image"`
}

// Scheduling configures the lifecycle window.
type Scheduling struct {
	Enabled bool   `yaml:"enabled"`
	Start   string `yaml:"start"`
	Stop    string `yaml:"stop"`
}

// SecretRef points at one key of a Kubernetes secret.
type SecretRef struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// Empty reports whether the reference is unset.
func (r SecretRef) Empty() bool {
	return r.Name == ""
}

// Shared holds opaque handles supplied by the shared infrastructure layer.
// The fleet threads them through unmodified.
type Shared struct {
	NodeSelector   map[string]string `yaml:"node_selector"`
	ServiceAccount string            `yaml:"service_account"`
	EncryptionKey  string            `yaml:"encryption_key"`
}

// Load reads and validates a fleet configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "llm-fleet"
	}
	if c.HubSecret.Name != "" && c.HubSecret.Key == "" {
		c.HubSecret.Key = "token"
	}
}

// Validate checks the configuration for problems a pass cannot recover from.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("no models requested")
	}
	if c.Scheduling.Enabled {
		if c.Scheduling.Start == "" {
			return fmt.Errorf("scheduling enabled but start expression is empty")
		}
		if c.Scheduling.Stop == "" {
			return fmt.Errorf("scheduling enabled but stop expression is empty")
		}
	}
	return nil
}
