package config

import (
	"time"

	"github.com/tenderpulse/tagger/internal/augment"
	redisinfra "github.com/tenderpulse/tagger/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig        `yaml:"server"`
	Redis   redisinfra.Config   `yaml:"redis"`
	Logging LoggingConfig       `yaml:"logging"`
	Queues  QueuesConfig        `yaml:"queues"`
	Model   augment.ModelConfig `yaml:"model"`
	Worker  WorkerConfig        `yaml:"worker"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// QueuesConfig names the three queue endpoints. All three are
// required; they are usually injected through environment variables.
type QueuesConfig struct {
	Source   string `yaml:"source"`
	Enriched string `yaml:"enriched"`
	Failed   string `yaml:"failed"`

	Consumer redisinfra.QueueConfig `yaml:"consumer"`
}

// WorkerConfig holds the drain loop settings.
type WorkerConfig struct {
	BatchSize        int64         `yaml:"batch_size"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	InvocationBudget time.Duration `yaml:"invocation_budget"`
	SafetyMargin     time.Duration `yaml:"safety_margin"`
}
