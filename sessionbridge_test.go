// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package sessionbridge

import (
	"errors"
	"testing"

	"github.com/outrigdev/sessionbridge/pkg/base"
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/simengine"
)

func TestInitOnce(t *testing.T) {
	t.Setenv(base.DisabledEnvName, "1")
	if _, err := Init(nil, simengine.MakeEngine(), nil, nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled Init err = %v", err)
	}
	t.Setenv(base.DisabledEnvName, "")

	cfg := DefaultConfig()
	cfg.RegionsConfig.SnapTolerance = 3
	engine := simengine.MakeEngine()
	b, err := Init(cfg, engine, nil, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()
	if GetBridge() != b {
		t.Error("GetBridge should return the initialized bridge")
	}
	if b.GetConfig().RegionsConfig.SnapTolerance != 3 {
		t.Errorf("config not applied: %+v", b.GetConfig().RegionsConfig)
	}
	if _, err := Init(nil, engine, nil, nil); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init err = %v", err)
	}

	engine.Tick()
	if engine.Stats().NetworkReleased != 1 {
		t.Errorf("engine stats = %+v", engine.Stats())
	}
	b.Tracker.AddRegion(ds.MakeRectXYWH(0, 0, 5, 5))
	if len(engine.SecureRects()) != 1 {
		t.Errorf("secure rects = %v", engine.SecureRects())
	}
	Shutdown()
	if GetBridge() != nil {
		t.Error("Shutdown should clear the bridge")
	}
}
