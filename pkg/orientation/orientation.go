// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package orientation

import (
	"sync"
	"sync/atomic"

	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "orientation")

type Listener func(o ds.Orientation)

// Monitor turns raw sensor angles into edge-triggered orientation changes.
// The platform is resolved through platformFn on every use and never cached.
type Monitor struct {
	notifyLock      sync.Mutex // held across a reading and its notification
	lock            sync.Mutex
	platformFn      func() ds.Platform
	toleranceOffset int
	listener        Listener
	sensor          ds.OrientationSensor // non-nil while started
	current         atomic.Int32         // ds.Orientation
}

func MakeMonitor(cfg ds.OrientationConfig, platformFn func() ds.Platform, listener Listener) *Monitor {
	return &Monitor{
		platformFn:      platformFn,
		toleranceOffset: cfg.ToleranceOffset,
		listener:        listener,
	}
}

func (m *Monitor) resolvePlatform() ds.Platform {
	if m.platformFn == nil {
		return nil
	}
	return m.platformFn()
}

// Start is a no-op if already started or if the platform is unavailable
func (m *Monitor) Start() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.sensor != nil {
		return
	}
	platform := m.resolvePlatform()
	if platform == nil {
		log.Debugf("[orientation] platform unavailable, not starting")
		return
	}
	sensor, err := platform.OrientationSensor()
	if err != nil || sensor == nil {
		log.Debugf("[orientation] no orientation sensor: %v", err)
		return
	}
	m.current.Store(int32(ds.OrientationUnset))
	m.sensor = sensor
	if !sensor.CanDetectOrientation() {
		log.Debugf("[orientation] sensor cannot detect orientation")
		return
	}
	sensor.Enable(m.handleReading)
}

// Stop releases the sensor and resets the state to unset
func (m *Monitor) Stop() {
	m.lock.Lock()
	sensor := m.sensor
	m.sensor = nil
	m.current.Store(int32(ds.OrientationUnset))
	m.lock.Unlock()
	if sensor != nil {
		sensor.Disable()
	}
}

func (m *Monitor) IsStarted() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.sensor != nil
}

func (m *Monitor) Current() ds.Orientation {
	return ds.Orientation(m.current.Load())
}

func (m *Monitor) handleReading(angle int) {
	m.notifyLock.Lock()
	defer m.notifyLock.Unlock()
	m.lock.Lock()
	if m.sensor == nil {
		m.lock.Unlock()
		return
	}
	naturalLandscape := IsNaturalLandscape(m.resolvePlatform())
	o := CalculateOrientation(angle, naturalLandscape, m.toleranceOffset)
	prev := ds.Orientation(m.current.Swap(int32(o)))
	m.lock.Unlock()
	if prev == o {
		return
	}
	log.Debugf("[orientation] %s -> %s", prev, o)
	if m.listener != nil {
		m.listener(o)
	}
}

// CalculateOrientation buckets a raw sensor angle into one of four quadrants
func CalculateOrientation(angle int, naturalLandscape bool, toleranceOffset int) ds.Orientation {
	angle += toleranceOffset
	if naturalLandscape {
		angle += 90
	}
	angle = ((angle % 360) + 360) % 360
	switch angle / 90 {
	case 0:
		return ds.OrientationPortraitUp
	case 1:
		return ds.OrientationLandscapeRight
	case 2:
		return ds.OrientationPortraitDown
	default:
		return ds.OrientationLandscapeLeft
	}
}

// NaturalOrientation reports whether the device's default orientation is landscape
func NaturalOrientation(rotation ds.DisplayRotation, configOrientation ds.ConfigOrientation) ds.ConfigOrientation {
	switch rotation {
	case ds.Rotation0, ds.Rotation180:
		if configOrientation == ds.ConfigOrientationLandscape {
			return ds.ConfigOrientationLandscape
		}
	case ds.Rotation90, ds.Rotation270:
		if configOrientation == ds.ConfigOrientationPortrait {
			return ds.ConfigOrientationLandscape
		}
	}
	return ds.ConfigOrientationPortrait
}

// IsNaturalLandscape queries the platform; any failure means portrait
func IsNaturalLandscape(platform ds.Platform) bool {
	if platform == nil {
		return false
	}
	rotation, err := platform.DisplayRotation()
	if err != nil {
		return false
	}
	configOrientation, err := platform.ConfigOrientation()
	if err != nil {
		return false
	}
	return NaturalOrientation(rotation, configOrientation) == ds.ConfigOrientationLandscape
}
