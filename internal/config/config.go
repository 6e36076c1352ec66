package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the telemetry service.
type Config struct {

	// Consensus node
	NodeWSURL  string // WebSocket base URL for the leaf subscription
	NodeRPCURL string // HTTP base URL for stake table / node directory queries

	// Redis
	RedisURL    string
	BlocksTopic string
	VotersTopic string

	// Pipeline
	ChannelCapacity int // Bounded depth of each output channel

	// WebSocket
	WSMaxRetries     int
	WSReconnectDelay time.Duration

	// Stake table poller (0 = disabled)
	StakePollInterval time.Duration

	// Logging
	LogLevel string

	// HTTP API
	HTTPEnabled bool
	HTTPAddr    string
	AdminToken  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		BlocksTopic:       "finalized-blocks",
		VotersTopic:       "block-voters",
		ChannelCapacity:   32,
		WSMaxRetries:      25,
		WSReconnectDelay:  time.Second,
		StakePollInterval: 30 * time.Second,
		LogLevel:          "info",
	}

	// Required
	cfg.NodeWSURL = os.Getenv("NODE_WS_URL")
	if cfg.NodeWSURL == "" {
		return nil, fmt.Errorf("NODE_WS_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	// Optional overrides
	cfg.NodeRPCURL = os.Getenv("NODE_RPC_URL")

	if v := os.Getenv("BLOCKS_TOPIC"); v != "" {
		cfg.BlocksTopic = v
	}

	if v := os.Getenv("VOTERS_TOPIC"); v != "" {
		cfg.VotersTopic = v
	}

	if v := os.Getenv("CHANNEL_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChannelCapacity = n
		}
	}

	if v := os.Getenv("WS_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WSMaxRetries = n
		}
	}

	if v := os.Getenv("WS_RECONNECT_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WSReconnectDelay = d
		}
	}

	if v := os.Getenv("STAKE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StakePollInterval = d
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// HTTP API Configuration
	if v := os.Getenv("HTTP_ENABLED"); v != "" {
		cfg.HTTPEnabled = v == "true" || v == "1"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080" // Default port
	}

	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	if cfg.AdminToken == "" {
		cfg.AdminToken = "devtoken" // Default token for development
	}

	return cfg, nil
}
