// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/outrigdev/sessionbridge/pkg/config"
	"github.com/outrigdev/sessionbridge/pkg/ds"
)

type fakeEngine struct {
	lock          sync.Mutex
	networkFilter ds.NetworkEventFilter
	logFilter     ds.LogFilter
	provider      ds.AttachmentsProvider
	secureRects   []ds.Rect
	attachments   []ds.Attachment
}

func (e *fakeEngine) SetNetworkEventFilter(filter ds.NetworkEventFilter) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.networkFilter = filter
}

func (e *fakeEngine) SetLogFilter(filter ds.LogFilter) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.logFilter = filter
}

func (e *fakeEngine) SetReportAttachmentsProvider(provider ds.AttachmentsProvider) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.provider = provider
}

func (e *fakeEngine) SetAttachments(attachments []ds.Attachment) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.attachments = attachments
}

func (e *fakeEngine) SetSecureRects(rects []ds.Rect) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.secureRects = rects
}

func (e *fakeEngine) SetOnNewFeedbackListener(fn func(messages []string)) {}

func (e *fakeEngine) SetLifecycleEventsListener(fn func(ev ds.LifecycleEvent)) {}

func (e *fakeEngine) getSecureRects() []ds.Rect {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.secureRects
}

type echoChannel struct {
	lock  sync.Mutex
	calls []string
}

// InvokeMethod answers every call with the arguments it was given
func (c *echoChannel) InvokeMethod(method string, args any, resultFn ds.ResultFn) {
	c.lock.Lock()
	c.calls = append(c.calls, method)
	c.lock.Unlock()
	if resultFn == nil {
		return
	}
	list := args.([]any)
	if method == ds.MethodOnNetworkEvent {
		resultFn(ds.SuccessResult(list[0]))
		return
	}
	resultFn(ds.SuccessResult(list))
}

func makeTestBridge(t *testing.T) (*Bridge, *fakeEngine) {
	engine := &fakeEngine{}
	b := MakeBridge(*config.DefaultConfig(), engine, &echoChannel{}, nil)
	b.Start()
	t.Cleanup(b.Stop)
	return b, engine
}

func TestMethodTable(t *testing.T) {
	b, engine := makeTestBridge(t)
	ctx := context.Background()

	_, err := b.HandleMethodCall(ctx, "updateRegions", map[string]any{"bounds": []any{1.0, 10.0, 10.0, 50.0, 50.0}})
	if err != nil {
		t.Fatalf("updateRegions: %v", err)
	}
	want := []ds.Rect{{Left: 10, Top: 10, Right: 60, Bottom: 60}}
	if !reflect.DeepEqual(engine.getSecureRects(), want) {
		t.Errorf("secure rects = %v, want %v", engine.getSecureRects(), want)
	}

	_, err = b.HandleMethodCall(ctx, "addSecureRect", map[string]any{"x": 1, "y": 2, "width": 3, "height": 4})
	if err != nil {
		t.Fatalf("addSecureRect: %v", err)
	}
	got, err := b.HandleMethodCall(ctx, "getAllRegions", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, [][]float64{{1, 2, 3, 4}}) {
		t.Errorf("getAllRegions = %v", got)
	}
	if len(engine.getSecureRects()) != 2 {
		t.Errorf("explicit rect should join tracked rects, got %v", engine.getSecureRects())
	}

	if _, err = b.HandleMethodCall(ctx, "removeRegion", map[string]any{"x": 1, "y": 2, "width": 3, "height": 4}); err != nil {
		t.Fatal(err)
	}
	if _, err = b.HandleMethodCall(ctx, "removeAllSecureRects", nil); err != nil {
		t.Fatal(err)
	}
	if engine.getSecureRects() != nil || b.Tracker.NumTracked() != 0 {
		t.Error("removeAllSecureRects should clear everything")
	}

	if _, err = b.HandleMethodCall(ctx, "setCallbackState", map[string]any{"callbackName": ds.MethodOnLogEvent, "state": true}); err != nil {
		t.Fatal(err)
	}
	if _, err = b.HandleMethodCall(ctx, "setCallbackActive", map[string]any{"name": ds.MethodOnNetworkEvent, "enabled": true}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(b.Registry.ActiveNames(), []string{ds.MethodOnLogEvent, ds.MethodOnNetworkEvent}) {
		t.Errorf("active = %v", b.Registry.ActiveNames())
	}
}

func TestMethodErrors(t *testing.T) {
	b, _ := makeTestBridge(t)
	ctx := context.Background()
	tests := []struct {
		method string
		args   any
		want   error
	}{
		{"takeScreenshot", nil, ErrNotImplemented},
		{"updateRegions", map[string]any{"bounds": []any{1, 2, 3}}, ErrInvalidArgs},
		{"updateRegions", map[string]any{"bounds": "nope"}, ErrInvalidArgs},
		{"updateRegions", []any{1}, ErrInvalidArgs},
		{"addRegion", map[string]any{"x": 1, "y": 2, "width": 3}, ErrInvalidArgs},
		{"addRegion", map[string]any{"x": "1", "y": 2, "width": 3, "height": 4}, ErrInvalidArgs},
		{"setCallbackActive", map[string]any{"name": "onLogEvent"}, ErrInvalidArgs},
	}
	for _, tc := range tests {
		_, err := b.HandleMethodCall(ctx, tc.method, tc.args)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s(%v): err = %v, want %v", tc.method, tc.args, err, tc.want)
		}
	}

	if res := b.HandleCall(ctx, "takeScreenshot", nil); res.Status != ds.CallStatusNotImplemented {
		t.Errorf("unknown method result = %+v", res)
	}
	if res := b.HandleCall(ctx, "addRegion", nil); res.Status != ds.CallStatusError || res.ErrorCode != ErrorCodeInvalidArgs {
		t.Errorf("invalid args result = %+v", res)
	}
	if _, err := b.HandleMethodCall(ctx, "updateRegions", map[string]any{}); err != nil {
		t.Errorf("absent bounds should clear, got %v", err)
	}
}

func TestBridgeRelaysThroughChannel(t *testing.T) {
	b, engine := makeTestBridge(t)
	b.Registry.SetActive(ds.MethodOnLogEvent, true)
	engine.lock.Lock()
	logFilter := engine.logFilter
	engine.lock.Unlock()
	if logFilter == nil {
		t.Fatal("Start should register the log filter")
	}
	releasedCh := make(chan *ds.LogEvent, 1)
	logFilter(&ds.LogEvent{Message: "hello", Level: ds.LogLevelInfo}, func(ev *ds.LogEvent) {
		releasedCh <- ev
	})
	select {
	case ev := <-releasedCh:
		if ev == nil || ev.Message != "hello" {
			t.Errorf("released %+v, want echoed event", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("log event never released")
	}
	if diag := b.Diagnostics(); diag.Relay.Applied != 1 {
		t.Errorf("diagnostics = %+v", diag)
	}
}

func TestStopIsFinal(t *testing.T) {
	engine := &fakeEngine{}
	b := MakeBridge(*config.DefaultConfig(), engine, &echoChannel{}, nil)
	b.Start()
	b.Stop()
	b.Stop()
	b.Start()
	if len(b.Registry.ActiveNames()) != 0 {
		t.Error("stop should clear active callbacks")
	}
}

func TestMakeAppInfo(t *testing.T) {
	info := MakeAppInfo("demo")
	if info.AppName != "demo" || info.AppRunId == "" || info.Pid == 0 {
		t.Errorf("app info = %+v", info)
	}
}
