package server

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/Zereker/docstore/internal/ingest"
	"github.com/Zereker/docstore/pkg/docstore"
	"github.com/Zereker/docstore/pkg/log"
	"github.com/Zereker/docstore/pkg/mq"
	"github.com/Zereker/docstore/pkg/redis"
	"github.com/Zereker/docstore/pkg/search"
)

// Config holds all configuration values
type Config struct {
	Server ServerConfig            `toml:"server"`
	Log    log.Config              `toml:"log"`
	Search search.Config           `toml:"search"`
	Store  docstore.RegistryConfig `toml:"store"`
	Kafka  mq.KafkaConfig          `toml:"kafka"`
	Redis  redis.Config            `toml:"redis"`
	Ingest ingest.Config           `toml:"ingest"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	Port int `toml:"port"`
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port is required and must be between 1 and 65535")
	}
	return nil
}

// Validate checks all configuration fields
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	// The ingest pipeline only runs when Kafka is enabled.
	if c.Kafka.Enabled {
		if err := c.Ingest.Validate(); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
	}

	return nil
}

// LoadConfig reads and parses the configuration file
func LoadConfig(filename string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
