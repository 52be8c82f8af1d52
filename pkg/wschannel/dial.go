// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package wschannel

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/outrigdev/sessionbridge/pkg/base"
)

// Dial connects to a bridge as the host. handler serves the bridge's
// outbound calls (onNetworkEvent, ...). The returned peer is already running.
func Dial(ctx context.Context, url string, handler Handler) (*Peer, error) {
	return DialWithVersion(ctx, url, base.SessionBridgeSDKVersion, handler)
}

func DialWithVersion(ctx context.Context, url string, version string, handler Handler) (*Peer, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", url, err)
	}
	remoteHello, err := ClientHandshake(conn, version)
	if err != nil {
		conn.Close()
		return nil, err
	}
	peer := makePeer(conn, remoteHello, handler)
	go peer.run()
	return peer, nil
}
