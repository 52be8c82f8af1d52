// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/outrigdev/sessionbridge/pkg/base"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// SessionBridgeVersion is overridden at build time
var SessionBridgeVersion = base.SessionBridgeSDKVersion

// SessionBridgeBuildTime is the build timestamp
var SessionBridgeBuildTime = ""

func setupLogging(levelStr string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		logrus.Warnf("invalid log level %q, using info", levelStr)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "sessionbridge",
		Short: "sessionbridge links a session capture engine to a host application",
		Long:  `sessionbridge links a session capture engine to a host application over a websocket method channel.`,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge with a simulated capture engine",
		Long:  `Run the bridge websocket server backed by a simulated capture engine that emits synthetic traffic.`,
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().Duration("traffic", 0, "emit synthetic traffic at this interval (0 disables)")
	serveCmd.Flags().String("loglevel", "", "log level (overrides config)")

	hostCmd := &cobra.Command{
		Use:   "host",
		Short: "Connect to a bridge as a host application",
		Long:  `Connect to a running bridge as the host, activate every callback and redact sensitive headers.`,
		RunE:  runHost,
	}
	hostCmd.Flags().String("url", "", "bridge websocket url (default ws://<listenaddr>/ws)")
	hostCmd.Flags().String("loglevel", "info", "log level")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sessionbridge",
		Run: func(cmd *cobra.Command, args []string) {
			if SessionBridgeBuildTime != "" {
				fmt.Printf("%s+%s\n", SessionBridgeVersion, SessionBridgeBuildTime)
			} else {
				fmt.Printf("%s+dev\n", SessionBridgeVersion)
			}
		},
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(versionCmd)

	// inherited by all subcommands
	rootCmd.PersistentFlags().Bool("dev", false, "Run in development mode")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
