// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"github.com/outrigdev/sessionbridge/pkg/utilds"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "registry")

// CallbackRegistry tracks which callback names currently have an active host handler
type CallbackRegistry struct {
	active *utilds.SyncSet
}

func MakeCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{active: utilds.MakeSyncSet()}
}

// SetActive is idempotent
func (r *CallbackRegistry) SetActive(name string, enabled bool) {
	var changed bool
	if enabled {
		changed = r.active.Add(name)
	} else {
		changed = r.active.Remove(name)
	}
	if changed {
		log.Debugf("[registry] callback %q active=%v", name, enabled)
	}
}

func (r *CallbackRegistry) IsActive(name string) bool {
	return r.active.Contains(name)
}

// ActiveNames returns the active callback names, sorted
func (r *CallbackRegistry) ActiveNames() []string {
	return r.active.Values()
}

func (r *CallbackRegistry) Clear() {
	r.active.Clear()
}
