// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package simengine is an in-process stand-in for the capture engine. It
// records everything handed back to it and can emit synthetic traffic.
package simengine

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/utilds"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "simengine")

type Stats struct {
	NetworkCaptured int64 `json:"networkcaptured"`
	NetworkReleased int64 `json:"networkreleased"`
	NetworkDropped  int64 `json:"networkdropped"`
	LogCaptured     int64 `json:"logcaptured"`
	LogReleased     int64 `json:"logreleased"`
	LogDropped      int64 `json:"logdropped"`
	ReportsFiled    int64 `json:"reportsfiled"`
}

type Engine struct {
	lock          sync.Mutex
	networkFilter ds.NetworkEventFilter
	logFilter     ds.LogFilter
	provider      ds.AttachmentsProvider
	feedbackFn    func(messages []string)
	lifecycleFn   func(ev ds.LifecycleEvent)
	secureRects   []ds.Rect
	attachments   []ds.Attachment
	lastNetwork   *ds.NetworkEvent
	lastLog       *ds.LogEvent
	seq           atomic.Int64
	executor      *utilds.PeriodicExecutor

	networkCaptured atomic.Int64
	networkReleased atomic.Int64
	networkDropped  atomic.Int64
	logCaptured     atomic.Int64
	logReleased     atomic.Int64
	logDropped      atomic.Int64
	reportsFiled    atomic.Int64
}

func MakeEngine() *Engine {
	return &Engine{}
}

func (e *Engine) SetNetworkEventFilter(filter ds.NetworkEventFilter) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.networkFilter = filter
}

func (e *Engine) SetLogFilter(filter ds.LogFilter) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.logFilter = filter
}

func (e *Engine) SetReportAttachmentsProvider(provider ds.AttachmentsProvider) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.provider = provider
}

func (e *Engine) SetAttachments(attachments []ds.Attachment) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.attachments = attachments
	log.Debugf("[simengine] report got %d attachments", len(attachments))
}

func (e *Engine) SetSecureRects(rects []ds.Rect) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.secureRects = slices.Clone(rects)
	log.Debugf("[simengine] secure rects: %v", rects)
}

func (e *Engine) SetOnNewFeedbackListener(fn func(messages []string)) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.feedbackFn = fn
}

func (e *Engine) SetLifecycleEventsListener(fn func(ev ds.LifecycleEvent)) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.lifecycleFn = fn
}

func (e *Engine) SecureRects() []ds.Rect {
	e.lock.Lock()
	defer e.lock.Unlock()
	return slices.Clone(e.secureRects)
}

func (e *Engine) Attachments() []ds.Attachment {
	e.lock.Lock()
	defer e.lock.Unlock()
	return slices.Clone(e.attachments)
}

// LastNetworkEvent returns the last network event that was released (not dropped)
func (e *Engine) LastNetworkEvent() *ds.NetworkEvent {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.lastNetwork
}

func (e *Engine) LastLogEvent() *ds.LogEvent {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.lastLog
}

// CaptureNetworkEvent pushes ev through the registered filter. Without a filter it is recorded as is.
func (e *Engine) CaptureNetworkEvent(ev *ds.NetworkEvent) {
	e.networkCaptured.Add(1)
	e.lock.Lock()
	filter := e.networkFilter
	e.lock.Unlock()
	if filter == nil {
		e.onNetworkReleased(ev)
		return
	}
	filter(ev, e.onNetworkReleased)
}

func (e *Engine) onNetworkReleased(ev *ds.NetworkEvent) {
	if ev == nil {
		e.networkDropped.Add(1)
		return
	}
	e.networkReleased.Add(1)
	e.lock.Lock()
	e.lastNetwork = ev
	e.lock.Unlock()
}

func (e *Engine) CaptureLog(ev *ds.LogEvent) {
	e.logCaptured.Add(1)
	e.lock.Lock()
	filter := e.logFilter
	e.lock.Unlock()
	if filter == nil {
		e.onLogReleased(ev)
		return
	}
	filter(ev, e.onLogReleased)
}

func (e *Engine) onLogReleased(ev *ds.LogEvent) {
	if ev == nil {
		e.logDropped.Add(1)
		return
	}
	e.logReleased.Add(1)
	e.lock.Lock()
	e.lastLog = ev
	e.lock.Unlock()
}

// FileReport asks the provider for attachments; the answer arrives through SetAttachments
func (e *Engine) FileReport(report ds.Report) {
	e.reportsFiled.Add(1)
	e.lock.Lock()
	provider := e.provider
	e.lock.Unlock()
	if provider == nil {
		e.SetAttachments([]ds.Attachment{})
		return
	}
	provider(report)
}

func (e *Engine) EmitFeedback(messages []string) {
	e.lock.Lock()
	fn := e.feedbackFn
	e.lock.Unlock()
	if fn != nil {
		fn(messages)
	}
}

func (e *Engine) EmitLifecycle(ev ds.LifecycleEvent) {
	e.lock.Lock()
	fn := e.lifecycleFn
	e.lock.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (e *Engine) Stats() Stats {
	return Stats{
		NetworkCaptured: e.networkCaptured.Load(),
		NetworkReleased: e.networkReleased.Load(),
		NetworkDropped:  e.networkDropped.Load(),
		LogCaptured:     e.logCaptured.Load(),
		LogReleased:     e.logReleased.Load(),
		LogDropped:      e.logDropped.Load(),
		ReportsFiled:    e.reportsFiled.Load(),
	}
}

// Tick emits one round of synthetic traffic: a network event, a log line,
// and every tenth round a bug report
func (e *Engine) Tick() {
	seq := e.seq.Add(1)
	e.CaptureNetworkEvent(&ds.NetworkEvent{
		Url:    fmt.Sprintf("https://api.example.com/v1/items/%d", seq),
		Method: "GET",
		Stage:  "before",
		Headers: map[string]string{
			"Authorization": "Bearer sim-token",
			"Accept":        "application/json",
		},
	})
	e.CaptureLog(&ds.LogEvent{
		Message: fmt.Sprintf("sim tick %d", seq),
		Level:   ds.LogLevelInfo,
	})
	if seq%10 == 0 {
		e.FileReport(ds.Report{Type: "bug", Severity: ds.SeverityMedium})
	}
}

// StartTraffic begins emitting synthetic traffic every interval
func (e *Engine) StartTraffic(interval time.Duration) {
	e.lock.Lock()
	if e.executor == nil {
		e.executor = utilds.MakePeriodicExecutor("simengine", interval, e.Tick)
	}
	executor := e.executor
	e.lock.Unlock()
	executor.Enable()
	e.EmitLifecycle(ds.LifecycleStarted)
}

func (e *Engine) StopTraffic() {
	e.lock.Lock()
	executor := e.executor
	e.lock.Unlock()
	if executor == nil || !executor.IsEnabled() {
		return
	}
	executor.Disable()
	e.EmitLifecycle(ds.LifecycleStopped)
}
