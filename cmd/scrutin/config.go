package main

import (
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// config is the YAML configuration of the command line. Every field is
// optional; flags fill the gaps.
type config struct {
	DBPath   string `yaml:"db"`
	LogLevel string `yaml:"log_level"`
}

// loadConfig reads the configuration file at the given path. An empty path
// yields the zero configuration.
func loadConfig(path string) (config, error) {
	cfg := config{}

	if path == "" {
		return cfg, nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, xerrors.Errorf("failed to read '%s': %v", path, err)
	}

	err = yaml.Unmarshal(buf, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to unmarshal config: %v", err)
	}

	return cfg, nil
}
