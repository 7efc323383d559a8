package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// cliConfig is the subset of the Solana CLI config file the tool reads.
type cliConfig struct {
	JSONRPCURL   string `yaml:"json_rpc_url"`
	WebsocketURL string `yaml:"websocket_url"`
	KeypairPath  string `yaml:"keypair_path"`
}

// loadCLIConfig reads a Solana CLI config file. A missing file yields an empty config.
func loadCLIConfig(path string) (*cliConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &cliConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var c cliConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "solana", "cli", "config.yml")
}
