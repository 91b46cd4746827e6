package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
)

var (
	// ConfigPath is the variable which stores the config path command line parameter
	ConfigPath string
)

// Config stores the config for the tool
type Config struct {
	// Agent configuration of the agent that is served
	Agent AgentConfig `json:"agent"`
	// APIServerAddr address of the APIServer
	APIServerAddr string `json:"server_addr"`
	// LogConfig configuration for logging
	LogConfig LogConfig `json:"log"`
}

// AgentConfig stores the config used to construct an agent
type AgentConfig struct {
	// Kind of agent, one of random
	Kind string `json:"kind"`
	// Seed for the random source. 0 seeds from the current time
	Seed uint64 `json:"seed"`
	// ModelPath default path used to save and load the value table
	ModelPath string `json:"model_path"`
	// LoadOnStart loads ModelPath when the agent is served
	LoadOnStart bool `json:"load_on_start"`
	// SaveOnExit saves to ModelPath when the server stops
	SaveOnExit bool `json:"save_on_exit"`
}

// LogConfig stores the config for logging purpose
type LogConfig struct {
	// Path of the log file
	Path string `json:"path"`
	// Format to log. Only `json` is currently supported
	Format string `json:"format"`
	// Level log level, one of panic|fatal|error|warn|warning|info|debug|trace
	Level string `json:"level"`
}

// DefaultConfig returns the configuration used when a field is not specified
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Kind: "random",
		},
		APIServerAddr: "0.0.0.0:7075",
		LogConfig:     DefaultLogConfig(),
	}
}

// DefaultLogConfig logs json at level info to stderr
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Path:   "",
		Format: "json",
		Level:  "info",
	}
}

// ParseConfig parses config from the specified file
func ParseConfig(path string) (*Config, error) {
	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	defaultConfig := DefaultConfig()
	err = json.Unmarshal(bytes, defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return defaultConfig, nil
}
