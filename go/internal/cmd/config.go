package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from an optional yaml file
// with environment overrides for deployment.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Timer struct {
		ReapDelaySeconds     int `yaml:"reap_delay_seconds"`
		HeartbeatEvery       int `yaml:"heartbeat_every_ticks"`
		HeartbeatQuietWindow int `yaml:"heartbeat_quiet_window_seconds"`
	} `yaml:"timer"`

	NATS struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"nats"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.Port = "4000"
	cfg.Timer.ReapDelaySeconds = 120
	cfg.Timer.HeartbeatEvery = 10
	cfg.Timer.HeartbeatQuietWindow = 20
	cfg.NATS.Enabled = false
	cfg.NATS.URL = "nats://localhost:4222"
	return &cfg
}

// loadConfig reads the yaml config file when present and applies env
// overrides on top of it.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Timer.ReapDelaySeconds = getEnvAsInt("REAP_DELAY_SECONDS", cfg.Timer.ReapDelaySeconds)
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.NATS.Enabled = true
		cfg.NATS.URL = url
	}

	return cfg, nil
}

// ReapDelay returns the idle-room teardown delay as a duration.
func (c *Config) ReapDelay() time.Duration {
	return time.Duration(c.Timer.ReapDelaySeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
