// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package global

import (
	"sync/atomic"

	"github.com/outrigdev/sessionbridge/pkg/bridge"
	"github.com/outrigdev/sessionbridge/pkg/config"
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/utilds"
)

// The process-wide bridge, set by Init and cleared by Shutdown
var Bridge atomic.Pointer[bridge.Bridge]

// Config is fixed by the first Init call
var Config = utilds.NewSetOnceConfig[ds.Config](*config.DefaultConfig())

func GetBridge() *bridge.Bridge {
	return Bridge.Load()
}
