package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is an optional YAML file overriding agent settings. Zero values
// leave the environment settings in place.
type Profile struct {
	Instructions  string   `yaml:"instructions"`
	MaxIterations int      `yaml:"max_iterations"`
	Temperature   *float64 `yaml:"temperature"`
	MaxTokens     int      `yaml:"max_tokens"`
}

func LoadProfile(path string) (Profile, error) {
	var p Profile
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read agent profile: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse agent profile %s: %w", path, err)
	}
	if p.MaxIterations < 0 || p.MaxTokens < 0 {
		return p, fmt.Errorf("agent profile %s: limits must not be negative", path)
	}
	return p, nil
}

func (c Config) WithProfile(p Profile) Config {
	if p.Instructions != "" {
		c.Agent.Instructions = p.Instructions
	}
	if p.MaxIterations > 0 {
		c.Agent.MaxIterations = p.MaxIterations
	}
	if p.Temperature != nil {
		c.Agent.Temperature = *p.Temperature
	}
	if p.MaxTokens > 0 {
		c.Agent.MaxTokens = p.MaxTokens
	}
	return c
}

// LoadWithProfile reads the environment and applies DATAAGENT_AGENT_PROFILE
// when it is set.
func LoadWithProfile() (Config, error) {
	cfg := Load()
	if cfg.AgentProfile == "" {
		return cfg, nil
	}
	p, err := LoadProfile(cfg.AgentProfile)
	if err != nil {
		return cfg, err
	}
	return cfg.WithProfile(p), nil
}
