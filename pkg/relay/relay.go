// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package relay hands capture engine events to the host for review and
// releases each one back to the engine exactly once.
package relay

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/outrigdev/sessionbridge/pkg/coordinator"
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/registry"
	"github.com/outrigdev/sessionbridge/pkg/utilds"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "relay")

const (
	StateCaptured int32 = iota
	StateFastReleased
	StateAwaitingRemote
	stateResolving
	StateApplied
	StateDropped
)

type categoryPolicy struct {
	// dispatchInactive sends the event to the host even after a fast release
	dispatchInactive bool
}

var dispatchTable = map[string]categoryPolicy{
	ds.MethodOnNetworkEvent:         {dispatchInactive: true},
	ds.MethodOnLogEvent:             {dispatchInactive: true},
	ds.MethodOnAttachmentsForReport: {dispatchInactive: false},
}

type inflightEvent struct {
	id    string
	ic    Interceptor
	state atomic.Int32
}

type Stats struct {
	FastReleased int64 `json:"fastreleased"`
	Applied      int64 `json:"applied"`
	Dropped      int64 `json:"dropped"`
	InFlight     int   `json:"inflight"`
}

type Relay struct {
	cfg      ds.RelayConfig
	channel  ds.MethodChannel
	registry *registry.CallbackRegistry
	coord    *coordinator.Coordinator
	inflight *utilds.SyncMap[string, *inflightEvent]
	closed   atomic.Bool

	numFastReleased atomic.Int64
	numApplied      atomic.Int64
	numDropped      atomic.Int64
}

func MakeRelay(cfg ds.RelayConfig, channel ds.MethodChannel, reg *registry.CallbackRegistry, coord *coordinator.Coordinator) *Relay {
	return &Relay{
		cfg:      cfg,
		channel:  channel,
		registry: reg,
		coord:    coord,
		inflight: utilds.MakeSyncMap[string, *inflightEvent](),
	}
}

// Register installs the relay's filters and listeners on the engine
func (r *Relay) Register(engine ds.Engine) {
	engine.SetNetworkEventFilter(r.FilterNetworkEvent)
	engine.SetLogFilter(r.FilterLog)
	engine.SetReportAttachmentsProvider(func(report ds.Report) {
		r.ProvideAttachments(report, engine.SetAttachments)
	})
	engine.SetOnNewFeedbackListener(r.ForwardFeedback)
	engine.SetLifecycleEventsListener(r.ForwardLifecycle)
}

func (r *Relay) FilterNetworkEvent(ev *ds.NetworkEvent, listener ds.NetworkEventListener) {
	if ev == nil {
		listener(nil)
		return
	}
	r.Intercept(context.Background(), MakeNetworkFilter(ev, listener))
}

func (r *Relay) FilterLog(ev *ds.LogEvent, listener ds.LogListener) {
	if ev == nil {
		listener(nil)
		return
	}
	r.Intercept(context.Background(), MakeLogFilter(ev, listener))
}

func (r *Relay) ProvideAttachments(report ds.Report, setFn func(attachments []ds.Attachment)) {
	r.Intercept(context.Background(), MakeAttachmentProvider(report, setFn))
}

// Intercept runs one event through the fast path or the host round trip.
// Never blocks on the host. Engine callbacks carry no context, so their
// dispatch is queued; a ctx from a coordinator task dispatches inline.
func (r *Relay) Intercept(ctx context.Context, ic Interceptor) {
	ife := &inflightEvent{id: uuid.New().String(), ic: ic}
	policy := dispatchTable[ic.Method()]
	if !r.registry.IsActive(ic.Method()) {
		ife.state.Store(StateFastReleased)
		r.numFastReleased.Add(1)
		ic.ReleaseOriginal()
		if policy.dispatchInactive && !r.closed.Load() {
			r.coord.Run(ctx, func(ctx context.Context) {
				r.invoke(ife, nil)
			})
		}
		return
	}
	ife.state.Store(StateAwaitingRemote)
	r.inflight.Set(ife.id, ife)
	if r.closed.Load() {
		r.resolveDefault(ife)
		return
	}
	ok := r.coord.Run(ctx, func(ctx context.Context) {
		if ife.state.Load() != StateAwaitingRemote {
			return
		}
		r.invoke(ife, func(res ds.CallResult) {
			r.handleResult(ife, res)
		})
	})
	if !ok {
		r.resolveDefault(ife)
	}
}

func (r *Relay) invoke(ife *inflightEvent, resultFn ds.ResultFn) {
	if r.channel == nil {
		if resultFn != nil {
			resultFn(ds.ErrorResult("nochannel", "method channel not available"))
		}
		return
	}
	r.channel.InvokeMethod(ife.ic.Method(), ife.ic.Args(), resultFn)
}

// handleResult may run on any goroutine
func (r *Relay) handleResult(ife *inflightEvent, res ds.CallResult) {
	if !ife.state.CompareAndSwap(StateAwaitingRemote, stateResolving) {
		return
	}
	r.inflight.Delete(ife.id)
	if res.Status == ds.CallStatusSuccess && res.Data != nil && ife.ic.ApplyResult(res.Data) {
		ife.state.Store(StateApplied)
		r.numApplied.Add(1)
		return
	}
	if res.Status == ds.CallStatusError {
		log.Debugf("[relay] %s failed: %s", ife.ic.Method(), res.ErrorCode)
	} else if res.Status == ds.CallStatusSuccess && res.Data != nil {
		log.Debugf("[relay] %s returned a malformed result", ife.ic.Method())
	}
	ife.state.Store(StateDropped)
	r.numDropped.Add(1)
	ife.ic.ReleaseDefault()
}

func (r *Relay) resolveDefault(ife *inflightEvent) {
	if !ife.state.CompareAndSwap(StateAwaitingRemote, StateDropped) {
		return
	}
	r.inflight.Delete(ife.id)
	r.numDropped.Add(1)
	ife.ic.ReleaseDefault()
}

// Close resolves every in-flight event to its safe default. Events
// intercepted afterwards are fast released or dropped, never dispatched.
func (r *Relay) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	pending := r.inflight.Drain()
	if len(pending) > 0 {
		log.Debugf("[relay] dropping %d in-flight events on close", len(pending))
	}
	for _, ife := range pending {
		r.resolveDefault(ife)
	}
}

func (r *Relay) Stats() Stats {
	return Stats{
		FastReleased: r.numFastReleased.Load(),
		Applied:      r.numApplied.Load(),
		Dropped:      r.numDropped.Load(),
		InFlight:     r.inflight.Len(),
	}
}

// ForwardFeedback sends new feedback messages to the host, fire-and-forget
func (r *Relay) ForwardFeedback(messages []string) {
	if !r.cfg.ForwardFeedback {
		return
	}
	r.forward(ds.MethodOnNewFeedbackMessages, []any{messages})
}

func (r *Relay) ForwardLifecycle(ev ds.LifecycleEvent) {
	if !r.cfg.ForwardLifecycle {
		return
	}
	r.forward(ds.MethodOnLifecycleEvent, []any{int(ev)})
}

func (r *Relay) forward(method string, args []any) {
	if r.closed.Load() || r.channel == nil {
		return
	}
	r.coord.Run(context.Background(), func(ctx context.Context) {
		r.channel.InvokeMethod(method, args, nil)
	})
}
