/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package ports

import "go.uber.org/zap"

// LoggingNetStack is a NetStack that only logs; driving the real net
// stack (DHCP lease teardown, routing table resets, etc.) is out of
// scope for this core, which only needs to call Reset() at the right
// moments in the state machine.
type LoggingNetStack struct {
	log *zap.SugaredLogger
}

// NewLoggingNetStack builds a NetStack that logs each reset at Info.
func NewLoggingNetStack(log *zap.SugaredLogger) *LoggingNetStack {
	return &LoggingNetStack{log: log}
}

// Reset logs the reset request.
func (n *LoggingNetStack) Reset() error {
	n.log.Info("net stack reset")
	return nil
}

// LoggingNotifier is a Notifier that logs at Error, used when no modal UI
// is available (this is a headless daemon; UI for credential entry is
// out of scope, but a fatal startup notification is still surfaced).
type LoggingNotifier struct {
	log *zap.SugaredLogger
}

// NewLoggingNotifier builds a Notifier backed by the given logger.
func NewLoggingNotifier(log *zap.SugaredLogger) *LoggingNotifier {
	return &LoggingNotifier{log: log}
}

// Notify logs msg at Error.
func (n *LoggingNotifier) Notify(msg string) {
	n.log.Error(msg)
}
