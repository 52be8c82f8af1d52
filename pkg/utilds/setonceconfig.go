// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package utilds

import (
	"sync"
	"sync/atomic"
)

// SetOnceConfig holds a configuration value that can be replaced exactly once.
// Until then Get returns the default.
type SetOnceConfig[T any] struct {
	once          sync.Once
	isSet         atomic.Bool
	config        atomic.Pointer[T]
	defaultConfig T
}

func NewSetOnceConfig[T any](defaultCfg T) *SetOnceConfig[T] {
	soc := &SetOnceConfig[T]{
		defaultConfig: defaultCfg,
	}
	soc.config.Store(&soc.defaultConfig)
	return soc
}

// SetOnce stores a copy of cfg (nil keeps the default).
// Returns false if a previous call already won.
func (soc *SetOnceConfig[T]) SetOnce(cfg *T) bool {
	var ok bool
	soc.once.Do(func() {
		if cfg != nil {
			cfgCopy := *cfg
			soc.config.Store(&cfgCopy)
		}
		soc.isSet.Store(true)
		ok = true
	})
	return ok
}

func (soc *SetOnceConfig[T]) IsSet() bool {
	return soc.isSet.Load()
}

func (soc *SetOnceConfig[T]) Get() T {
	return *soc.config.Load()
}
