package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	NATS struct {
		// Empty URL selects the in-process bus.
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Team struct {
		MaxTeamSize          int `yaml:"max_team_size"`
		MaxFlagpoles         int `yaml:"max_flagpoles"`
		InvitationTTLSeconds int `yaml:"invitation_ttl_seconds"`
		SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	} `yaml:"team"`
	Gateway struct {
		SyncIntervalSeconds int `yaml:"sync_interval_seconds"`
	} `yaml:"gateway"`
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

func defaultConfig() *Config {
	var config Config
	config.Server.Port = "8080"
	config.Team.MaxTeamSize = 8
	config.Team.MaxFlagpoles = 1
	config.Team.InvitationTTLSeconds = 120
	config.Team.SweepIntervalSeconds = 30
	config.Gateway.SyncIntervalSeconds = 10
	return &config
}

// loadConfig reads the YAML config file when present and applies
// environment overrides on top.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.Team.MaxTeamSize = getEnvAsInt("TEAM_MAX_SIZE", config.Team.MaxTeamSize)
	config.Team.MaxFlagpoles = getEnvAsInt("TEAM_MAX_FLAGPOLES", config.Team.MaxFlagpoles)
	config.Team.InvitationTTLSeconds = getEnvAsInt("TEAM_INVITATION_TTL_SECONDS", config.Team.InvitationTTLSeconds)
	config.Team.SweepIntervalSeconds = getEnvAsInt("TEAM_SWEEP_INTERVAL_SECONDS", config.Team.SweepIntervalSeconds)
	config.Gateway.SyncIntervalSeconds = getEnvAsInt("GATEWAY_SYNC_INTERVAL_SECONDS", config.Gateway.SyncIntervalSeconds)

	return config, nil
}

func (c *Config) invitationTTL() time.Duration {
	return time.Duration(c.Team.InvitationTTLSeconds) * time.Second
}

func (c *Config) sweepInterval() time.Duration {
	return time.Duration(c.Team.SweepIntervalSeconds) * time.Second
}

func (c *Config) syncInterval() time.Duration {
	return time.Duration(c.Gateway.SyncIntervalSeconds) * time.Second
}
