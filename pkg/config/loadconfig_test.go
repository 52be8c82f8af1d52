// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/outrigdev/sessionbridge/pkg/base"
)

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessionbridge.yaml")
	content := "loglevel: debug\nregions:\n  snaptolerance: 3\n  orientationwindowms: 2000\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.RegionsConfig.SnapTolerance != 3 || cfg.RegionsConfig.OrientationWindowMs != 2000 {
		t.Errorf("regions config = %+v", cfg.RegionsConfig)
	}
	// untouched fields keep their defaults
	if cfg.RegionsConfig.SentinelExtent != DefaultSentinelExtent {
		t.Errorf("SentinelExtent = %d, want default", cfg.RegionsConfig.SentinelExtent)
	}
	if !cfg.OrientationConfig.Enabled {
		t.Error("orientation should stay enabled by default")
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessionbridge.json")
	if err := os.WriteFile(path, []byte(`{"quiet": true, "server": {"listenaddr": "127.0.0.1:9999"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if !cfg.Quiet || cfg.ServerConfig.ListenAddr != "127.0.0.1:9999" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.json"))
	if cfg != nil || err != nil {
		t.Errorf("missing file should return nil, nil; got %v, %v", cfg, err)
	}
}

func TestLoadConfigFromEnvJson(t *testing.T) {
	t.Setenv(base.ConfigJsonEnvName, `{"regions": {"snaptolerance": -4, "sentinelextent": 0}}`)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RegionsConfig.SnapTolerance != 0 {
		t.Errorf("negative tolerance should normalize to 0, got %d", cfg.RegionsConfig.SnapTolerance)
	}
	if cfg.RegionsConfig.SentinelExtent != DefaultSentinelExtent {
		t.Errorf("zero sentinel should normalize to default, got %d", cfg.RegionsConfig.SentinelExtent)
	}
}

func TestLoadConfigExplicitFileMissing(t *testing.T) {
	t.Setenv(base.ConfigFileEnvName, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Error("explicitly configured missing file should be an error")
	}
}
