// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package wschannel

import (
	"github.com/outrigdev/sessionbridge/pkg/ds"
)

const (
	FrameTypeHello     = "hello"
	FrameTypeHelloResp = "helloresp"
	FrameTypeCall      = "call"
	FrameTypeResult    = "result"
	FrameTypePing      = "ping"
	FrameTypePong      = "pong"
)

// Frame is the single JSON message shape exchanged over the websocket
type Frame struct {
	Type    string         `json:"type"`
	Id      string         `json:"id,omitempty"`
	Method  string         `json:"method,omitempty"`
	Args    any            `json:"args,omitempty"`
	NoReply bool           `json:"noreply,omitempty"` // caller does not want a result frame
	Result  *ds.CallResult `json:"result,omitempty"`
	Hello   *HelloPacket   `json:"hello,omitempty"`
	Resp    *HelloResponse `json:"resp,omitempty"`
	STime   int64          `json:"stime,omitempty"`
}
