// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package utilds

import "sync"

type SyncMap[K comparable, T any] struct {
	lock *sync.Mutex
	m    map[K]T
}

func MakeSyncMap[K comparable, T any]() *SyncMap[K, T] {
	return &SyncMap[K, T]{
		lock: &sync.Mutex{},
		m:    make(map[K]T),
	}
}

func (sm *SyncMap[K, T]) Set(key K, value T) {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	sm.m[key] = value
}

func (sm *SyncMap[K, T]) GetEx(key K) (T, bool) {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	v, ok := sm.m[key]
	return v, ok
}

// GetAndDelete removes key and returns the value it held.
// Of several concurrent callers for the same key, only one sees ok == true.
func (sm *SyncMap[K, T]) GetAndDelete(key K) (T, bool) {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	v, ok := sm.m[key]
	if ok {
		delete(sm.m, key)
	}
	return v, ok
}

func (sm *SyncMap[K, T]) Delete(key K) {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	delete(sm.m, key)
}

// Drain empties the map and returns everything it held
func (sm *SyncMap[K, T]) Drain() map[K]T {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	rtn := sm.m
	sm.m = make(map[K]T)
	return rtn
}

func (sm *SyncMap[K, T]) Len() int {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	return len(sm.m)
}
