// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/outrigdev/sessionbridge/pkg/base"
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"gopkg.in/yaml.v3"
)

var ConfigFileNames = []string{"sessionbridge.json", "sessionbridge.yaml", "sessionbridge.yml"}

// LoadConfig finds and parses a config, layered over DefaultConfig().
// Returns (nil, nil) when no config source exists.
func LoadConfig() (*ds.Config, error) {
	// 1. Check explicit JSON env var first
	if configJson := os.Getenv(base.ConfigJsonEnvName); configJson != "" {
		cfg := DefaultConfig()
		if err := json.Unmarshal([]byte(configJson), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", base.ConfigJsonEnvName, err)
		}
		Normalize(cfg)
		return cfg, nil
	}

	// 2. Check explicit config file env var
	if configFile := os.Getenv(base.ConfigFileEnvName); configFile != "" {
		cfg, err := LoadConfigFile(configFile)
		if err != nil {
			return nil, err
		}
		if cfg == nil {
			// explicitly set but missing is an error
			return nil, fmt.Errorf("config file %q: %w", configFile, os.ErrNotExist)
		}
		return cfg, nil
	}

	// 3. Walk up directories looking for project root (includes current dir)
	return findConfigInParents()
}

func findConfigInParents() (*ds.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	homeDir, _ := os.UserHomeDir()
	for {
		for _, name := range ConfigFileNames {
			cfg, err := LoadConfigFile(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			if cfg != nil {
				return cfg, nil
			}
		}
		if hasProjectRoot(dir) {
			break
		}
		if homeDir != "" && dir == homeDir {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir || parent == "/" {
			break
		}
		dir = parent
	}
	return nil, nil
}

func hasProjectRoot(dir string) bool {
	markers := []string{".git", "go.mod"}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// LoadConfigFile parses a JSON or YAML (by extension) config file.
// A missing file returns (nil, nil).
func LoadConfigFile(path string) (*ds.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	cfg := DefaultConfig()
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	Normalize(cfg)
	return cfg, nil
}
