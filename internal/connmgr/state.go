/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package connmgr

// WifiState is the tagged variant at the center of the connection
// manager: exactly one is active at any instant.
type WifiState int

// The full set of states the machine can occupy.
const (
	StateUnknown WifiState = iota
	StateConnecting
	StateWaitDhcp
	StateConnected
	StateDisconnected
	StateRetry
	StateInvalidAp
	StateInvalidAuth
	StateError
)

// AllStates lists every WifiState, in declaration order, for metrics
// labeling and tests.
var AllStates = []WifiState{
	StateUnknown, StateConnecting, StateWaitDhcp, StateConnected,
	StateDisconnected, StateRetry, StateInvalidAp, StateInvalidAuth, StateError,
}

func (s WifiState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateConnecting:
		return "connecting"
	case StateWaitDhcp:
		return "wait-dhcp"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateRetry:
		return "retry"
	case StateInvalidAp:
		return "invalid-ap"
	case StateInvalidAuth:
		return "invalid-auth"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ScanState tracks whether an SSID scan is currently in flight.
type ScanState int

// The two scan states.
const (
	ScanIdle ScanState = iota
	ScanScanning
)

// isSelectingState reports whether s is one of the states from which
// poll-driven reconciliation runs the candidate selector (spec.md §4.5).
func isSelectingState(s WifiState) bool {
	switch s {
	case StateUnknown, StateDisconnected, StateInvalidAp, StateInvalidAuth:
		return true
	default:
		return false
	}
}
