// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package simengine

import (
	"sync"

	"github.com/outrigdev/sessionbridge/pkg/ds"
)

// Platform is a fake device. Rotate feeds a raw angle to the sensor listener.
type Platform struct {
	lock      sync.Mutex
	rotation  ds.DisplayRotation
	config    ds.ConfigOrientation
	readingFn func(angle int)
}

func MakePlatform(rotation ds.DisplayRotation, config ds.ConfigOrientation) *Platform {
	return &Platform{rotation: rotation, config: config}
}

func (p *Platform) DisplayRotation() (ds.DisplayRotation, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.rotation, nil
}

func (p *Platform) ConfigOrientation() (ds.ConfigOrientation, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.config, nil
}

func (p *Platform) OrientationSensor() (ds.OrientationSensor, error) {
	return (*platformSensor)(p), nil
}

func (p *Platform) Rotate(angle int) {
	p.lock.Lock()
	fn := p.readingFn
	p.lock.Unlock()
	if fn != nil {
		fn(angle)
	}
}

type platformSensor Platform

func (s *platformSensor) CanDetectOrientation() bool { return true }

func (s *platformSensor) Enable(readingFn func(angle int)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.readingFn = readingFn
}

func (s *platformSensor) Disable() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.readingFn = nil
}
