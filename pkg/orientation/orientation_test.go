// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package orientation

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/outrigdev/sessionbridge/pkg/ds"
)

type fakeSensor struct {
	lock      sync.Mutex
	canDetect bool
	readingFn func(angle int)
	enables   int
	disables  int
}

func (s *fakeSensor) CanDetectOrientation() bool { return s.canDetect }

func (s *fakeSensor) Enable(readingFn func(angle int)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.enables++
	s.readingFn = readingFn
}

func (s *fakeSensor) Disable() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.disables++
}

func (s *fakeSensor) emit(angle int) {
	s.lock.Lock()
	fn := s.readingFn
	s.lock.Unlock()
	if fn != nil {
		fn(angle)
	}
}

type fakePlatform struct {
	rotation    ds.DisplayRotation
	config      ds.ConfigOrientation
	rotationErr error
	sensor      *fakeSensor
}

func (p *fakePlatform) DisplayRotation() (ds.DisplayRotation, error) {
	return p.rotation, p.rotationErr
}

func (p *fakePlatform) ConfigOrientation() (ds.ConfigOrientation, error) {
	return p.config, nil
}

func (p *fakePlatform) OrientationSensor() (ds.OrientationSensor, error) {
	if p.sensor == nil {
		return nil, errors.New("no sensor")
	}
	return p.sensor, nil
}

func TestCalculateOrientation(t *testing.T) {
	tests := []struct {
		angle     int
		landscape bool
		want      ds.Orientation
	}{
		{0, false, ds.OrientationPortraitUp},
		{44, false, ds.OrientationPortraitUp},
		{45, false, ds.OrientationLandscapeRight},
		{134, false, ds.OrientationLandscapeRight},
		{135, false, ds.OrientationPortraitDown},
		{225, false, ds.OrientationLandscapeLeft},
		{314, false, ds.OrientationLandscapeLeft},
		{315, false, ds.OrientationPortraitUp},
		{359, false, ds.OrientationPortraitUp},
		{0, true, ds.OrientationLandscapeRight},
		{270, true, ds.OrientationPortraitUp},
		{-90, false, ds.OrientationLandscapeLeft},
	}
	for _, tc := range tests {
		got := CalculateOrientation(tc.angle, tc.landscape, 45)
		if got != tc.want {
			t.Errorf("CalculateOrientation(%d, %v) = %s, want %s", tc.angle, tc.landscape, got, tc.want)
		}
	}
}

func TestNaturalOrientation(t *testing.T) {
	tests := []struct {
		rotation ds.DisplayRotation
		config   ds.ConfigOrientation
		want     ds.ConfigOrientation
	}{
		{ds.Rotation0, ds.ConfigOrientationLandscape, ds.ConfigOrientationLandscape},
		{ds.Rotation180, ds.ConfigOrientationLandscape, ds.ConfigOrientationLandscape},
		{ds.Rotation90, ds.ConfigOrientationPortrait, ds.ConfigOrientationLandscape},
		{ds.Rotation270, ds.ConfigOrientationPortrait, ds.ConfigOrientationLandscape},
		{ds.Rotation0, ds.ConfigOrientationPortrait, ds.ConfigOrientationPortrait},
		{ds.Rotation90, ds.ConfigOrientationLandscape, ds.ConfigOrientationPortrait},
		{ds.Rotation0, ds.ConfigOrientationUndefined, ds.ConfigOrientationPortrait},
	}
	for _, tc := range tests {
		if got := NaturalOrientation(tc.rotation, tc.config); got != tc.want {
			t.Errorf("NaturalOrientation(%d, %d) = %d, want %d", tc.rotation, tc.config, got, tc.want)
		}
	}
	failing := &fakePlatform{rotation: ds.Rotation0, config: ds.ConfigOrientationLandscape, rotationErr: errors.New("gone")}
	if IsNaturalLandscape(failing) {
		t.Error("platform query failure should default to portrait")
	}
	if IsNaturalLandscape(nil) {
		t.Error("nil platform should default to portrait")
	}
}

func TestMonitorEdgeTriggered(t *testing.T) {
	sensor := &fakeSensor{canDetect: true}
	platform := &fakePlatform{rotation: ds.Rotation0, config: ds.ConfigOrientationPortrait, sensor: sensor}
	var got []ds.Orientation
	m := MakeMonitor(ds.OrientationConfig{Enabled: true, ToleranceOffset: 45}, func() ds.Platform { return platform }, func(o ds.Orientation) {
		got = append(got, o)
	})
	m.Start()
	m.Start()
	if sensor.enables != 1 {
		t.Fatalf("sensor enabled %d times, want 1", sensor.enables)
	}
	if m.Current() != ds.OrientationUnset {
		t.Errorf("state before first reading = %s", m.Current())
	}
	for _, angle := range []int{0, 10, 20, 90, 95, 0, 180} {
		sensor.emit(angle)
	}
	want := []ds.Orientation{ds.OrientationPortraitUp, ds.OrientationLandscapeRight, ds.OrientationPortraitUp, ds.OrientationPortraitDown}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("notifications = %v, want %v", got, want)
	}
	m.Stop()
	if sensor.disables != 1 || m.Current() != ds.OrientationUnset || m.IsStarted() {
		t.Error("Stop should disable the sensor and reset state")
	}
	sensor.emit(90)
	if len(got) != len(want) {
		t.Error("readings after Stop should be ignored")
	}
}

func TestMonitorConcurrentReadingsNotifyInOrder(t *testing.T) {
	sensor := &fakeSensor{canDetect: true}
	platform := &fakePlatform{rotation: ds.Rotation0, config: ds.ConfigOrientationPortrait, sensor: sensor}
	var lock sync.Mutex
	var got []ds.Orientation
	m := MakeMonitor(ds.OrientationConfig{Enabled: true, ToleranceOffset: 45}, func() ds.Platform { return platform }, func(o ds.Orientation) {
		lock.Lock()
		got = append(got, o)
		lock.Unlock()
	})
	m.Start()
	defer m.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				sensor.emit(((i + j) % 4) * 90)
			}
		}(i)
	}
	wg.Wait()

	lock.Lock()
	defer lock.Unlock()
	if len(got) == 0 {
		t.Fatal("no notifications delivered")
	}
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Fatalf("notification %d repeats %s", i, got[i])
		}
	}
	if last := got[len(got)-1]; last != m.Current() {
		t.Errorf("last notification %s, current state %s", last, m.Current())
	}
}

func TestMonitorNoPlatform(t *testing.T) {
	m := MakeMonitor(ds.OrientationConfig{}, func() ds.Platform { return nil }, nil)
	m.Start()
	if m.IsStarted() {
		t.Error("Start without a platform should be a no-op")
	}
	m.Stop()
}

func TestMonitorCannotDetect(t *testing.T) {
	sensor := &fakeSensor{canDetect: false}
	platform := &fakePlatform{sensor: sensor}
	m := MakeMonitor(ds.OrientationConfig{ToleranceOffset: 45}, func() ds.Platform { return platform }, nil)
	m.Start()
	if sensor.enables != 0 {
		t.Error("sensor that cannot detect orientation should not be enabled")
	}
	m.Stop()
	if sensor.disables != 1 {
		t.Error("Stop should still release the sensor handle")
	}
}
