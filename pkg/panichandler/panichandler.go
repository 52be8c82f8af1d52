// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package panichandler

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "panichandler")

// PanicHandler logs a recovered panic and converts it to an error.
// Usage: defer func() { panichandler.PanicHandler("name", recover()) }()
func PanicHandler(debugStr string, recoverVal any) error {
	if recoverVal == nil {
		return nil
	}
	log.Errorf("[panic] in %s: %v", debugStr, recoverVal)
	log.Errorf("[panic] stack trace:\n%s", string(debug.Stack()))
	if err, ok := recoverVal.(error); ok {
		return fmt.Errorf("panic in %s: %w", debugStr, err)
	}
	return fmt.Errorf("panic in %s: %v", debugStr, recoverVal)
}
