// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"sync"

	"github.com/outrigdev/sessionbridge/pkg/coordinator"
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/orientation"
	"github.com/outrigdev/sessionbridge/pkg/regions"
	"github.com/outrigdev/sessionbridge/pkg/registry"
	"github.com/outrigdev/sessionbridge/pkg/relay"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "bridge")

// Bridge wires the capture engine, the host method channel and the core
// components together
type Bridge struct {
	Lock     sync.Mutex // lock for this struct
	config   *ds.Config
	engine   ds.Engine
	started  bool
	stopped  bool
	Coord    *coordinator.Coordinator
	Registry *registry.CallbackRegistry
	Tracker  *regions.Tracker
	Monitor  *orientation.Monitor
	Relay    *relay.Relay
}

// MakeBridge builds the bridge. platformFn may be nil (no orientation support)
// and may return nil whenever the platform is unavailable.
func MakeBridge(config ds.Config, engine ds.Engine, channel ds.MethodChannel, platformFn func() ds.Platform) *Bridge {
	b := &Bridge{
		config:   &config,
		engine:   engine,
		Coord:    coordinator.MakeCoordinator("bridge"),
		Registry: registry.MakeCallbackRegistry(),
	}
	b.Tracker = regions.MakeTracker(config.RegionsConfig, engine)
	b.Monitor = orientation.MakeMonitor(config.OrientationConfig, platformFn, b.Tracker.OnOrientationChanged)
	b.Relay = relay.MakeRelay(config.RelayConfig, channel, b.Registry, b.Coord)
	return b
}

func (b *Bridge) GetConfig() ds.Config {
	b.Lock.Lock()
	defer b.Lock.Unlock()
	return *b.config
}

// Start registers the relay with the engine and begins orientation monitoring
func (b *Bridge) Start() {
	b.Lock.Lock()
	defer b.Lock.Unlock()
	if b.started || b.stopped {
		return
	}
	b.started = true
	b.Coord.Start()
	b.Relay.Register(b.engine)
	if b.config.OrientationConfig.Enabled {
		b.Monitor.Start()
	}
	log.Infof("[bridge] started")
}

// Stop resolves every in-flight event and releases the sensor. A stopped bridge cannot be restarted.
func (b *Bridge) Stop() {
	b.Lock.Lock()
	defer b.Lock.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	b.Registry.Clear()
	b.Relay.Close()
	b.Monitor.Stop()
	b.Coord.Stop()
	if b.started {
		log.Infof("[bridge] stopped")
	}
}

type Diagnostics struct {
	ActiveCallbacks []string                 `json:"activecallbacks"`
	Orientation     string                   `json:"orientation"`
	Regions         []regions.RegionSnapshot `json:"regions"`
	ExplicitRegions []ds.Rect                `json:"explicitregions"`
	Relay           relay.Stats              `json:"relay"`
	QueueLen        int                      `json:"queuelen"`
}

func (b *Bridge) Diagnostics() Diagnostics {
	return Diagnostics{
		ActiveCallbacks: b.Registry.ActiveNames(),
		Orientation:     b.Monitor.Current().String(),
		Regions:         b.Tracker.Snapshot(),
		ExplicitRegions: b.Tracker.GetAllRegions(),
		Relay:           b.Relay.Stats(),
		QueueLen:        b.Coord.QueueLen(),
	}
}
