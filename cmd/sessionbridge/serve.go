// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexflint/go-filemutex"
	"github.com/outrigdev/sessionbridge"
	"github.com/outrigdev/sessionbridge/pkg/base"
	"github.com/outrigdev/sessionbridge/pkg/bridge"
	"github.com/outrigdev/sessionbridge/pkg/config"
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/simengine"
	"github.com/outrigdev/sessionbridge/pkg/utilfn"
	"github.com/outrigdev/sessionbridge/pkg/wschannel"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 2 * time.Second

// acquireServeLock holds the per-home lock file so only one serve runs at a time
func acquireServeLock(isDev bool) (*filemutex.FileMutex, error) {
	homeDir := utilfn.ExpandHomeDir(base.GetHomeForClient(isDev))
	if err := os.MkdirAll(homeDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create home dir %s: %w", homeDir, err)
	}
	lockFileName := filepath.Join(homeDir, base.LockFileName)
	logrus.Debugf("acquiring lock on %s", lockFileName)
	fm, err := filemutex.New(lockFileName)
	if err != nil {
		return nil, fmt.Errorf("cannot open lock file %s: %w", lockFileName, err)
	}
	if err := fm.TryLock(); err != nil {
		fm.Close()
		return nil, fmt.Errorf("another sessionbridge serve holds %s: %w", lockFileName, err)
	}
	return fm, nil
}

func loadServeConfig(cmd *cobra.Command) (*ds.Config, error) {
	isDev, _ := cmd.Flags().GetBool("dev")
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		if isDev {
			cfg = config.DefaultDevConfig()
		} else {
			cfg = config.DefaultConfig()
		}
	}
	if isDev {
		cfg.Dev = true
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.ServerConfig.ListenAddr = addr
	}
	if level, _ := cmd.Flags().GetString("loglevel"); level != "" {
		cfg.LogLevel = level
	}
	config.Normalize(cfg)
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	lock, err := acquireServeLock(cfg.Dev)
	if err != nil {
		return err
	}
	defer lock.Close()

	engine := simengine.MakeEngine()
	platform := simengine.MakePlatform(ds.Rotation0, ds.ConfigOrientationPortrait)
	srv := wschannel.MakeServer(*cfg, bridge.MakeAppInfo("sessionbridge"))
	b, err := sessionbridge.Init(cfg, engine, srv, func() ds.Platform { return platform })
	if err != nil {
		return err
	}
	defer sessionbridge.Shutdown()
	srv.SetHandler(b.HandleCall)
	// callback activations belong to the host that made them
	srv.SetDisconnectFn(b.Registry.Clear)

	listener, err := wschannel.MakeTCPListener(cfg.ServerConfig.ListenAddr)
	if err != nil {
		return err
	}
	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- srv.Serve(listener)
	}()
	logrus.Infof("sessionbridge %s listening on ws://%s/ws", SessionBridgeVersion, listener.Addr())

	if interval, _ := cmd.Flags().GetDuration("traffic"); interval > 0 {
		engine.StartTraffic(interval)
		defer engine.StopTraffic()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logrus.Infof("received %s, shutting down", sig)
	case err := <-serveErrCh:
		if err != nil {
			return fmt.Errorf("websocket server failed: %w", err)
		}
	}
	ctx, cancelFn := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelFn()
	srv.Shutdown(ctx)
	logrus.Infof("final engine stats: %+v", engine.Stats())
	return nil
}
