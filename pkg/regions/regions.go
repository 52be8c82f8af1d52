// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package regions

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
)

var log = logrus.WithField("component", "regions")

const BoundsStride = 5 // id, x, y, width, height

// SecureRectSetter receives the full redaction set on every change.
// It must not call back into the Tracker.
type SecureRectSetter interface {
	SetSecureRects(rects []ds.Rect)
}

// trackedRegion pairs the last reported bounds (stateRect, used only for
// diffing) with the bounds currently enforced (actualRect)
type trackedRegion struct {
	stateRect  ds.Rect
	actualRect ds.Rect
}

type RegionSnapshot struct {
	Id         int     `json:"id"`
	StateRect  ds.Rect `json:"staterect"`
	ActualRect ds.Rect `json:"actualrect"`
}

type Tracker struct {
	lock                  sync.Mutex
	cfg                   ds.RegionsConfig
	setter                SecureRectSetter
	nowFn                 func() time.Time
	arena                 map[int]*trackedRegion
	explicit              []ds.Rect
	lastTracked           []ds.Rect // last emitted batch result, without the sentinel
	lastOrientationChange time.Time
}

func MakeTracker(cfg ds.RegionsConfig, setter SecureRectSetter) *Tracker {
	return &Tracker{
		cfg:    cfg,
		setter: setter,
		nowFn:  time.Now,
		arena:  make(map[int]*trackedRegion),
	}
}

// SetNowFn replaces the clock (tests)
func (t *Tracker) SetNowFn(nowFn func() time.Time) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.nowFn = nowFn
}

func (t *Tracker) sentinelRect() ds.Rect {
	return ds.Rect{Left: 0, Top: 0, Right: t.cfg.SentinelExtent, Bottom: t.cfg.SentinelExtent}
}

func (t *Tracker) inOrientationWindow_nolock() bool {
	if t.lastOrientationChange.IsZero() {
		return false
	}
	window := time.Duration(t.cfg.OrientationWindowMs) * time.Millisecond
	return t.nowFn().Sub(t.lastOrientationChange) <= window
}

// UpdateRegions replaces the whole identifier-tracked set with batch and
// enforces the result. Identifiers missing from batch are dropped; an empty
// batch clears every tracked region. Returns the emitted rects (the
// orientation sentinel included when it applies).
func (t *Tracker) UpdateRegions(batch []ds.BoundsUpdate) []ds.Rect {
	t.lock.Lock()
	defer t.lock.Unlock()

	if len(batch) == 0 {
		clear(t.arena)
		t.lastTracked = nil
		t.enforce_nolock(nil)
		return nil
	}

	emitted := make([]ds.Rect, 0, len(batch)+1)
	idsToKeep := make(map[int]struct{}, len(batch))
	for _, bu := range batch {
		idsToKeep[bu.Id] = struct{}{}
		emitted = append(emitted, t.updateRegion_nolock(bu.Id, bu.Rect()))
	}
	for id := range t.arena {
		if _, keep := idsToKeep[id]; !keep {
			delete(t.arena, id)
		}
	}
	t.lastTracked = emitted
	emitted = t.trackedRects_nolock()
	t.enforce_nolock(emitted)
	return emitted
}

// trackedRects_nolock is the identifier-tracked part of the redaction set.
// Inside the orientation window the sentinel stays in it.
func (t *Tracker) trackedRects_nolock() []ds.Rect {
	rtn := slices.Clone(t.lastTracked)
	if len(t.arena) > 0 && t.inOrientationWindow_nolock() {
		rtn = append(rtn, t.sentinelRect())
	}
	return rtn
}

// updateRegion_nolock applies the snap-or-grow rule and returns the new actualRect
func (t *Tracker) updateRegion_nolock(id int, newRect ds.Rect) ds.Rect {
	region := t.arena[id]
	if region == nil {
		t.arena[id] = &trackedRegion{stateRect: newRect, actualRect: newRect}
		return newRect
	}
	tolerance := t.cfg.SnapTolerance
	snap := withinTolerance(newRect.Left-region.stateRect.Left, tolerance) &&
		withinTolerance(newRect.Top-region.stateRect.Top, tolerance) &&
		withinTolerance(newRect.Right-region.stateRect.Right, tolerance) &&
		withinTolerance(newRect.Bottom-region.stateRect.Bottom, tolerance)
	region.stateRect = newRect
	if snap {
		region.actualRect = newRect
	} else {
		region.actualRect = region.actualRect.Union(newRect)
	}
	return region.actualRect
}

func withinTolerance(delta int, tolerance int) bool {
	return delta >= -tolerance && delta <= tolerance
}

// OnOrientationChanged opens the orientation window. While regions are
// tracked the whole surface is obscured right away.
func (t *Tracker) OnOrientationChanged(o ds.Orientation) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.lastOrientationChange = t.nowFn()
	if len(t.arena) == 0 {
		return
	}
	log.Debugf("[regions] orientation changed to %s, obscuring full surface", o)
	t.enforce_nolock([]ds.Rect{t.sentinelRect()})
}

// AddRegion registers a static rect outside of the identifier model
func (t *Tracker) AddRegion(r ds.Rect) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if slices.Contains(t.explicit, r) {
		return
	}
	t.explicit = append(t.explicit, r)
	t.enforce_nolock(t.trackedRects_nolock())
}

// RemoveRegion removes a static rect (exact match)
func (t *Tracker) RemoveRegion(r ds.Rect) {
	t.lock.Lock()
	defer t.lock.Unlock()
	newExplicit := slices.DeleteFunc(t.explicit, func(e ds.Rect) bool { return e == r })
	if len(newExplicit) == len(t.explicit) {
		return
	}
	t.explicit = newExplicit
	t.enforce_nolock(t.trackedRects_nolock())
}

// RemoveAll clears both the static rects and the identifier-tracked regions
func (t *Tracker) RemoveAll() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.explicit = nil
	t.lastTracked = nil
	clear(t.arena)
	t.enforce_nolock(nil)
}

// GetAllRegions returns the static rects
func (t *Tracker) GetAllRegions() []ds.Rect {
	t.lock.Lock()
	defer t.lock.Unlock()
	return slices.Clone(t.explicit)
}

func (t *Tracker) NumTracked() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.arena)
}

// Snapshot returns copies of every tracked region, ordered by id
func (t *Tracker) Snapshot() []RegionSnapshot {
	t.lock.Lock()
	defer t.lock.Unlock()
	ids := maps.Keys(t.arena)
	slices.Sort(ids)
	rtn := make([]RegionSnapshot, 0, len(ids))
	for _, id := range ids {
		region := t.arena[id]
		rtn = append(rtn, RegionSnapshot{Id: id, StateRect: region.stateRect, ActualRect: region.actualRect})
	}
	return rtn
}

func (t *Tracker) enforce_nolock(tracked []ds.Rect) {
	if t.setter == nil {
		return
	}
	if len(t.explicit) == 0 && len(tracked) == 0 {
		t.setter.SetSecureRects(nil)
		return
	}
	rects := make([]ds.Rect, 0, len(t.explicit)+len(tracked))
	rects = append(rects, t.explicit...)
	rects = append(rects, tracked...)
	t.setter.SetSecureRects(rects)
}

// BoundsFromFlat splits a flat [id, x, y, w, h, ...] sequence into updates
func BoundsFromFlat(flat []int) ([]ds.BoundsUpdate, error) {
	if len(flat)%BoundsStride != 0 {
		return nil, fmt.Errorf("bounds length %d is not a multiple of %d", len(flat), BoundsStride)
	}
	rtn := make([]ds.BoundsUpdate, 0, len(flat)/BoundsStride)
	for i := 0; i < len(flat); i += BoundsStride {
		rtn = append(rtn, ds.BoundsUpdate{
			Id:     flat[i],
			X:      flat[i+1],
			Y:      flat[i+2],
			Width:  flat[i+3],
			Height: flat[i+4],
		})
	}
	return rtn, nil
}
