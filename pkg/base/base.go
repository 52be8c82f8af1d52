// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package base

// Home directory paths
const SessionBridgeHome = "~/.config/sessionbridge"
const DevSessionBridgeHome = "~/.config/sessionbridge-dev"

const LockFileName = "sessionbridge.lock"

// Environment variables
const ConfigJsonEnvName = "SESSIONBRIDGE_CONFIG_JSON"
const ConfigFileEnvName = "SESSIONBRIDGE_CONFIG"
const DevEnvName = "SESSIONBRIDGE_DEV"
const DisabledEnvName = "SESSIONBRIDGE_DISABLED"

const SessionBridgeSDKVersion = "v0.3.1"

// oldest peer versions the websocket handshake will talk to
const MinHostVersion = "v0.2.0"
const MinBridgeVersion = "v0.2.0"

// Default production / development listen addresses for the websocket server
const DefaultListenAddr = "127.0.0.1:5015"
const DevListenAddr = "127.0.0.1:6015"

// GetHomeForClient returns the appropriate home directory based on client config
func GetHomeForClient(isDev bool) string {
	if isDev {
		return DevSessionBridgeHome
	}
	return SessionBridgeHome
}
