// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"github.com/outrigdev/sessionbridge/pkg/base"
	"github.com/outrigdev/sessionbridge/pkg/ds"
)

const DefaultSnapTolerance = 1
const DefaultOrientationWindowMs = 1500
const DefaultSentinelExtent = 99999
const DefaultOrientationToleranceOffset = 45

// getDefaultConfig returns a default configuration with the specified dev mode
func getDefaultConfig(isDev bool) *ds.Config {
	listenAddr := base.DefaultListenAddr
	if isDev {
		listenAddr = base.DevListenAddr
	}
	return &ds.Config{
		Dev:      isDev,
		LogLevel: "info",
		RegionsConfig: ds.RegionsConfig{
			SnapTolerance:       DefaultSnapTolerance,
			OrientationWindowMs: DefaultOrientationWindowMs,
			SentinelExtent:      DefaultSentinelExtent,
		},
		OrientationConfig: ds.OrientationConfig{
			Enabled:         true,
			ToleranceOffset: DefaultOrientationToleranceOffset,
		},
		RelayConfig: ds.RelayConfig{
			ForwardFeedback:  true,
			ForwardLifecycle: true,
		},
		ServerConfig: ds.ServerConfig{
			ListenAddr: listenAddr,
		},
	}
}

// DefaultConfig returns the default configuration for normal usage
func DefaultConfig() *ds.Config {
	return getDefaultConfig(false)
}

// DefaultDevConfig returns a configuration for local development (dev home dir, dev port)
func DefaultDevConfig() *ds.Config {
	return getDefaultConfig(true)
}

// Normalize fills zero values with defaults. Negative tolerance is treated as zero.
func Normalize(cfg *ds.Config) {
	if cfg.RegionsConfig.SnapTolerance < 0 {
		cfg.RegionsConfig.SnapTolerance = 0
	}
	if cfg.RegionsConfig.OrientationWindowMs <= 0 {
		cfg.RegionsConfig.OrientationWindowMs = DefaultOrientationWindowMs
	}
	if cfg.RegionsConfig.SentinelExtent <= 0 {
		cfg.RegionsConfig.SentinelExtent = DefaultSentinelExtent
	}
	if cfg.ServerConfig.ListenAddr == "" {
		cfg.ServerConfig.ListenAddr = getDefaultConfig(cfg.Dev).ServerConfig.ListenAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
