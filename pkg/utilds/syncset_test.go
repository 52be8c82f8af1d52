// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package utilds

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSyncSetBasic(t *testing.T) {
	s := MakeSyncSet()
	if !s.Add("b") {
		t.Error("first Add should report insertion")
	}
	if s.Add("b") {
		t.Error("second Add should be a no-op")
	}
	s.Add("a")
	if !s.Contains("a") || !s.Contains("b") {
		t.Error("set should contain a and b")
	}
	if got := s.Values(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Values() = %v", got)
	}
	if !s.Remove("a") || s.Remove("a") {
		t.Error("Remove should report presence exactly once")
	}
	s.Clear()
	if s.Contains("b") {
		t.Error("Clear should empty the set")
	}
}

func TestSyncSetConcurrent(t *testing.T) {
	s := MakeSyncSet()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("cb-%d", i%5)
			for j := 0; j < 100; j++ {
				s.Add(name)
				s.Contains(name)
				if j%2 == 0 {
					s.Remove(name)
				}
			}
			s.Add(name)
		}(i)
	}
	wg.Wait()
	if got := len(s.Values()); got != 5 {
		t.Errorf("expected 5 members, got %d", got)
	}
}

func TestSyncMapGetAndDelete(t *testing.T) {
	m := MakeSyncMap[string, int]()
	m.Set("x", 1)
	var wg sync.WaitGroup
	var lock sync.Mutex
	winners := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := m.GetAndDelete("x"); ok {
				lock.Lock()
				winners++
				lock.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
	m.Set("a", 1)
	m.Set("b", 2)
	drained := m.Drain()
	if len(drained) != 2 || m.Len() != 0 {
		t.Errorf("Drain returned %v, remaining %d", drained, m.Len())
	}
}

func TestPeriodicExecutor(t *testing.T) {
	ranCh := make(chan struct{}, 10)
	var calls atomic.Int32
	pe := MakePeriodicExecutor("test", 10*time.Millisecond, func() {
		if calls.Add(1) == 1 {
			ranCh <- struct{}{}
			panic("first run fails")
		}
		ranCh <- struct{}{}
	})
	pe.Enable()
	pe.Enable()
	for i := 0; i < 2; i++ {
		select {
		case <-ranCh:
		case <-time.After(2 * time.Second):
			t.Fatal("executor did not run")
		}
	}
	pe.Disable()
	if pe.IsEnabled() {
		t.Error("executor still enabled after Disable")
	}
	if pe.NumRuns() < 1 {
		t.Errorf("NumRuns = %d", pe.NumRuns())
	}
}
