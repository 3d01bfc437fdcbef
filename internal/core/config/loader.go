package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = 10
	}
	if cfg.Worker.PollInterval == 0 {
		cfg.Worker.PollInterval = 5 * time.Second
	}
	if cfg.Worker.InvocationBudget == 0 {
		cfg.Worker.InvocationBudget = 5 * time.Minute
	}
	if cfg.Worker.SafetyMargin == 0 {
		cfg.Worker.SafetyMargin = 15 * time.Second
	}
	if cfg.Queues.Consumer.Group == "" {
		cfg.Queues.Consumer.Group = "tagger"
	}
	if cfg.Queues.Consumer.Consumer == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "tagger-1"
		}
		cfg.Queues.Consumer.Consumer = host
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *AppConfig) error {
	if cfg.Queues.Source == "" {
		return fmt.Errorf("queues.source is required")
	}
	if cfg.Queues.Enriched == "" {
		return fmt.Errorf("queues.enriched is required")
	}
	if cfg.Queues.Failed == "" {
		return fmt.Errorf("queues.failed is required")
	}
	return nil
}
