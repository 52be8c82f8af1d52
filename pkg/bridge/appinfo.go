// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/outrigdev/sessionbridge/pkg/base"
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/shirou/gopsutil/v4/host"
)

// MakeAppInfo describes this process for the handshake. appName "" => executable name.
func MakeAppInfo(appName string) ds.AppInfo {
	appInfo := ds.AppInfo{
		AppRunId:   uuid.New().String(),
		AppName:    appName,
		StartTime:  time.Now().UnixMilli(),
		Pid:        os.Getpid(),
		SDKVersion: base.SessionBridgeSDKVersion,
	}
	if appInfo.AppName == "" {
		appInfo.AppName = determineAppName()
	}

	// host info is best effort
	info, err := host.Info()
	if err == nil && info != nil {
		appInfo.Host = &ds.HostInfo{
			Hostname:        info.Hostname,
			OS:              info.OS,
			Platform:        info.Platform,
			PlatformVersion: info.PlatformVersion,
			KernelArch:      info.KernelArch,
		}
	} else if hostname, err := os.Hostname(); err == nil {
		appInfo.Host = &ds.HostInfo{Hostname: hostname}
	}
	return appInfo
}

func determineAppName() string {
	execPath, err := os.Executable()
	if err != nil {
		return "unknown"
	}
	return filepath.Base(execPath)
}
