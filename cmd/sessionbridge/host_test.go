// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"reflect"
	"testing"

	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/relay"
)

func TestRedactNetworkEvent(t *testing.T) {
	ev := &ds.NetworkEvent{
		Url:     "https://example.com",
		Body:    "{}",
		Method:  "POST",
		Headers: map[string]string{"Authorization": "Bearer x", "Accept": "*/*"},
	}
	res := hostHandler(context.Background(), ds.MethodOnNetworkEvent, []any{ev.Serialize()})
	if res.Status != ds.CallStatusSuccess {
		t.Fatalf("result = %+v", res)
	}
	filter := relay.MakeNetworkFilter(ev, func(got *ds.NetworkEvent) {})
	if !filter.ApplyResult(res.Data) {
		t.Fatal("host result should match the network event shape")
	}
	want := map[string]string{"Authorization": redactedValue, "Accept": "*/*"}
	if !reflect.DeepEqual(ev.Headers, want) {
		t.Errorf("headers = %v, want %v", ev.Headers, want)
	}
}

func TestHostHandlerAttachments(t *testing.T) {
	res := hostHandler(context.Background(), ds.MethodOnAttachmentsForReport, []any{"bug", 2})
	attachments, ok := relay.ParseAttachments(res.Data)
	if !ok || len(attachments) != 1 || attachments[0].FileName != "notes.txt" {
		t.Errorf("attachments = %+v ok=%v", attachments, ok)
	}
	if res := hostHandler(context.Background(), "somethingElse", nil); res.Status != ds.CallStatusNotImplemented {
		t.Errorf("unknown method = %+v", res)
	}
}
