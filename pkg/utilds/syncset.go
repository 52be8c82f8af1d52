// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package utilds

import (
	"slices"
	"sync"

	"golang.org/x/exp/maps"
)

// SyncSet is a string set safe for concurrent use
type SyncSet struct {
	lock sync.RWMutex
	m    map[string]struct{}
}

func MakeSyncSet() *SyncSet {
	return &SyncSet{m: make(map[string]struct{})}
}

// Add returns true if val was not already present
func (s *SyncSet) Add(val string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, found := s.m[val]; found {
		return false
	}
	s.m[val] = struct{}{}
	return true
}

// Remove returns true if val was present
func (s *SyncSet) Remove(val string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, found := s.m[val]; !found {
		return false
	}
	delete(s.m, val)
	return true
}

func (s *SyncSet) Contains(val string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	_, found := s.m[val]
	return found
}

// Values returns the members in sorted order
func (s *SyncSet) Values() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	rtn := maps.Keys(s.m)
	slices.Sort(rtn)
	return rtn
}

func (s *SyncSet) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.m = make(map[string]struct{})
}
