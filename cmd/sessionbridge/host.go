// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/outrigdev/sessionbridge/pkg/config"
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/utilfn"
	"github.com/outrigdev/sessionbridge/pkg/wschannel"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const redactedValue = "<redacted>"

var sensitiveHeaders = []string{"authorization", "cookie", "set-cookie", "x-api-key"}

func isSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, h := range sensitiveHeaders {
		if h == lower {
			return true
		}
	}
	return false
}

// redactNetworkEvent returns the {url, body, headers} review result for a serialized event
func redactNetworkEvent(serialized map[string]any) map[string]any {
	headers, _ := utilfn.ToStringMap(serialized["headers"])
	redacted := make(map[string]any, len(headers))
	for name, val := range headers {
		if isSensitiveHeader(name) {
			redacted[name] = redactedValue
		} else {
			redacted[name] = val
		}
	}
	return map[string]any{
		"url":     serialized["url"],
		"body":    serialized["body"],
		"headers": redacted,
	}
}

// hostHandler plays the host application's side of the outbound calls
func hostHandler(ctx context.Context, method string, args any) ds.CallResult {
	list, _ := utilfn.ToList(args)
	switch method {
	case ds.MethodOnNetworkEvent:
		if len(list) == 0 {
			return ds.ErrorResult("badargs", "missing event")
		}
		serialized, ok := list[0].(map[string]any)
		if !ok {
			return ds.ErrorResult("badargs", "event is not a map")
		}
		logrus.Infof("[host] network %v %v", serialized["method"], serialized["url"])
		return ds.SuccessResult(redactNetworkEvent(serialized))
	case ds.MethodOnLogEvent:
		logrus.Infof("[host] log %v", list)
		return ds.SuccessResult(list)
	case ds.MethodOnAttachmentsForReport:
		logrus.Infof("[host] attachments requested for %v", list)
		return ds.SuccessResult([]any{
			[]any{"host-notes", "notes.txt", []byte("filed from sessionbridge host")},
		})
	case ds.MethodOnNewFeedbackMessages, ds.MethodOnLifecycleEvent:
		logrus.Infof("[host] %s %v", method, list)
		return ds.SuccessResult(nil)
	}
	return ds.NotImplementedResult()
}

func runHost(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("loglevel")
	setupLogging(level)
	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		isDev, _ := cmd.Flags().GetBool("dev")
		cfg := config.DefaultConfig()
		if isDev {
			cfg = config.DefaultDevConfig()
		}
		url = fmt.Sprintf("ws://%s/ws", cfg.ServerConfig.ListenAddr)
	}

	peer, err := wschannel.Dial(context.Background(), url, hostHandler)
	if err != nil {
		return err
	}
	defer peer.Close()
	if appInfo := peer.RemoteHello.AppInfo; appInfo != nil {
		logrus.Infof("[host] connected to %s (apprunid:%s pid:%d)", appInfo.AppName, appInfo.AppRunId, appInfo.Pid)
	}

	for _, name := range []string{ds.MethodOnNetworkEvent, ds.MethodOnLogEvent, ds.MethodOnAttachmentsForReport} {
		peer.InvokeMethod("setCallbackActive", map[string]any{"name": name, "enabled": true}, func(res ds.CallResult) {
			if res.Status != ds.CallStatusSuccess {
				logrus.Warnf("[host] activating %s: %s %s", name, res.Status, res.ErrorMessage)
			}
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-peer.Done():
		logrus.Infof("[host] bridge closed the connection")
	}
	return nil
}
