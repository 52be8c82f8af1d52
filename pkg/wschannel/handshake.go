// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package wschannel

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gorilla/websocket"
	"github.com/outrigdev/sessionbridge/pkg/base"
	"github.com/outrigdev/sessionbridge/pkg/ds"
)

const (
	RoleBridge = "bridge"
	RoleHost   = "host"
)

const handshakeTimeout = 5 * time.Second

type HelloPacket struct {
	Version string      `json:"version"`
	Role    string      `json:"role"`
	AppInfo *ds.AppInfo `json:"appinfo,omitempty"`
}

type HelloResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// stripPrereleaseInfo returns a new version without prerelease information
func stripPrereleaseInfo(v *semver.Version) *semver.Version {
	if v == nil {
		return nil
	}
	cleanVersion, _ := semver.NewVersion(fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch()))
	return cleanVersion
}

// checkMinVersion compares release versions only, so v0.2.0-beta satisfies v0.2.0
func checkMinVersion(peerName string, version string, minVersionStr string) error {
	if version == "" {
		return fmt.Errorf("missing %s version", peerName)
	}
	peerVersion, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid %s version format: %s", peerName, version)
	}
	minVersion, _ := semver.NewVersion(minVersionStr)
	if stripPrereleaseInfo(peerVersion).LessThan(stripPrereleaseInfo(minVersion)) {
		return fmt.Errorf("%s version %s is less than minimum required version %s", peerName, version, minVersionStr)
	}
	return nil
}

func writeFrameWithTimeout(conn *websocket.Conn, frame *Frame) error {
	conn.SetWriteDeadline(time.Now().Add(handshakeTimeout))
	return conn.WriteJSON(frame)
}

func readFrameWithTimeout(conn *websocket.Conn, wantType string) (*Frame, error) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		return nil, err
	}
	if frame.Type != wantType {
		return nil, fmt.Errorf("expected %q frame, got %q", wantType, frame.Type)
	}
	return &frame, nil
}

func sendHelloResponse(conn *websocket.Conn, err error) error {
	resp := &HelloResponse{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	return writeFrameWithTimeout(conn, &Frame{Type: FrameTypeHelloResp, Resp: resp})
}

// ServerHandshake sends the bridge hello, then validates the host's reply
func ServerHandshake(conn *websocket.Conn, appInfo *ds.AppInfo) (*HelloPacket, error) {
	hello := &HelloPacket{Version: base.SessionBridgeSDKVersion, Role: RoleBridge, AppInfo: appInfo}
	if err := writeFrameWithTimeout(conn, &Frame{Type: FrameTypeHello, Hello: hello}); err != nil {
		return nil, fmt.Errorf("failed to send bridge hello: %w", err)
	}
	frame, err := readFrameWithTimeout(conn, FrameTypeHello)
	if err != nil {
		readErr := fmt.Errorf("failed to read host hello: %w", err)
		sendHelloResponse(conn, readErr)
		return nil, readErr
	}
	if frame.Hello == nil {
		missingErr := fmt.Errorf("host hello missing payload")
		sendHelloResponse(conn, missingErr)
		return nil, missingErr
	}
	if frame.Hello.Role != RoleHost {
		roleErr := fmt.Errorf("unexpected peer role: %q", frame.Hello.Role)
		sendHelloResponse(conn, roleErr)
		return nil, roleErr
	}
	if err := checkMinVersion("host", frame.Hello.Version, base.MinHostVersion); err != nil {
		sendHelloResponse(conn, err)
		return nil, err
	}
	if err := sendHelloResponse(conn, nil); err != nil {
		return nil, fmt.Errorf("failed to send hello response: %w", err)
	}
	conn.SetReadDeadline(time.Time{})
	return frame.Hello, nil
}

// ClientHandshake validates the bridge hello, answers with the host's version and waits for acceptance
func ClientHandshake(conn *websocket.Conn, version string) (*HelloPacket, error) {
	frame, err := readFrameWithTimeout(conn, FrameTypeHello)
	if err != nil {
		return nil, fmt.Errorf("failed to read bridge hello: %w", err)
	}
	if frame.Hello == nil {
		return nil, fmt.Errorf("bridge hello missing payload")
	}
	if err := checkMinVersion("bridge", frame.Hello.Version, base.MinBridgeVersion); err != nil {
		return nil, err
	}
	hello := &HelloPacket{Version: version, Role: RoleHost}
	if err := writeFrameWithTimeout(conn, &Frame{Type: FrameTypeHello, Hello: hello}); err != nil {
		return nil, fmt.Errorf("failed to send host hello: %w", err)
	}
	respFrame, err := readFrameWithTimeout(conn, FrameTypeHelloResp)
	if err != nil {
		return nil, fmt.Errorf("failed to read hello response: %w", err)
	}
	if respFrame.Resp == nil || !respFrame.Resp.Success {
		errStr := "no response payload"
		if respFrame.Resp != nil {
			errStr = respFrame.Resp.Error
		}
		return nil, fmt.Errorf("handshake failed: %s", errStr)
	}
	conn.SetReadDeadline(time.Time{})
	return frame.Hello, nil
}
