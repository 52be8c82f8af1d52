// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package sessionbridge connects a session capture engine to a host
// application: secure region tracking, orientation handling, and host
// review of network, log and attachment events.
package sessionbridge

import (
	"errors"
	"os"

	"github.com/outrigdev/sessionbridge/pkg/base"
	"github.com/outrigdev/sessionbridge/pkg/bridge"
	"github.com/outrigdev/sessionbridge/pkg/config"
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/global"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "sessionbridge")

type Config = ds.Config
type Engine = ds.Engine
type MethodChannel = ds.MethodChannel
type Platform = ds.Platform
type Rect = ds.Rect

var ErrAlreadyInitialized = errors.New("sessionbridge already initialized")
var ErrDisabled = errors.New("sessionbridge disabled via " + base.DisabledEnvName)

func DefaultConfig() *Config {
	return config.DefaultConfig()
}

func DefaultDevConfig() *Config {
	return config.DefaultDevConfig()
}

// LoadConfig reads the config from the environment or the nearest config file
func LoadConfig() (*Config, error) {
	return config.LoadConfig()
}

// Init builds and starts the process-wide bridge. cfg nil => default config.
// Setting SESSIONBRIDGE_DISABLED=1 turns Init into a no-op returning ErrDisabled.
func Init(cfg *Config, engine Engine, channel MethodChannel, platformFn func() Platform) (*bridge.Bridge, error) {
	if os.Getenv(base.DisabledEnvName) == "1" {
		return nil, ErrDisabled
	}
	if engine == nil {
		return nil, errors.New("sessionbridge: engine is required")
	}
	var finalCfg Config
	if cfg == nil {
		finalCfg = *config.DefaultConfig()
	} else {
		finalCfg = *cfg
	}
	config.Normalize(&finalCfg)
	if !global.Config.SetOnce(&finalCfg) {
		return nil, ErrAlreadyInitialized
	}
	b := bridge.MakeBridge(finalCfg, engine, channel, platformFn)
	b.Start()
	global.Bridge.Store(b)
	log.Debugf("[sessionbridge] initialized")
	return b, nil
}

// GetBridge returns the bridge created by Init, or nil
func GetBridge() *bridge.Bridge {
	return global.GetBridge()
}

// Shutdown stops the process-wide bridge. In-flight events resolve to their safe defaults.
func Shutdown() {
	b := global.Bridge.Swap(nil)
	if b == nil {
		return
	}
	b.Stop()
}
