/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package connmgr

import (
	"github.com/pkg/errors"

	"wifimgrd/internal/ports"
)

// handleInterrupt decodes the interrupt mask and feeds each recognized
// source into the state machine, per spec.md §4.5/§6. Interrupt-driven
// transitions always dominate over poll logic — they are applied the
// moment they arrive, serialized by the single dispatch goroutine.
func (m *Manager) handleInterrupt(mask, arg uint16) {
	if mask&irqConnect != 0 {
		m.handleConnectResult(decodeConnectResult(arg))
	}
	if mask&irqDisconnect != 0 {
		m.handleDisconnect()
	}
	if mask&irqWlanSSIDScanUpdate != 0 {
		m.foldScanResults()
	}
	if mask&irqWlanSSIDScanFinished != 0 {
		m.foldScanResults()
		m.scanState = ScanIdle
	}
	if mask&irqWlanIPConfigUpdate != 0 {
		m.handleIPConfigUpdate()
	}
}

func (m *Manager) handleConnectResult(r ports.ConnectResult) {
	switch r {
	case ports.ConnectSuccess:
		m.stopScanIfActive()
		m.activityInterval = 0
		m.setState(StateWaitDhcp)

	case ports.ConnectNoMatchingAp:
		m.metrics.InvalidAp.Inc()
		m.setState(StateInvalidAp)

	case ports.ConnectTimeout, ports.ConnectAborted:
		m.setState(StateRetry)

	case ports.ConnectReject, ports.ConnectAuthFail:
		m.metrics.InvalidAuth.Inc()
		m.setState(StateInvalidAuth)

	case ports.ConnectError, ports.ConnectPending:
		// Pending as a terminal ConnectResult is a protocol violation
		// (spec.md §9 Open Question (b)): the EC should never report
		// a join as "still pending" once it has raised the interrupt
		// at all, so we treat it the same as an explicit Error.
		m.log.Errorw("EC connect result protocol violation",
			"error", errors.Wrapf(ports.ErrProtocolViolation, "result=%s", r))
		m.setState(StateError)

	default:
		m.log.Warnw("unrecognized connect result", "raw", int(r))
		m.setState(StateError)
	}
}

func (m *Manager) handleDisconnect() {
	// The device may have moved out of range; the previously visible
	// SSID set is no longer trustworthy.
	for k := range m.ssidList {
		delete(m.ssidList, k)
	}
	m.startScanIfIdle()
	m.setState(StateDisconnected)
}

func (m *Manager) foldScanResults() {
	results, err := m.ec.ScanResults()
	if err != nil {
		m.log.Warnw("scan result fetch failed", "error", err)
		return
	}
	for _, ap := range results {
		m.ssidList[ap.SSID] = struct{}{}
	}
}

func (m *Manager) handleIPConfigUpdate() {
	m.activityInterval = 0
	m.setState(StateConnected)

	snap, err := m.ec.Status()
	if err != nil {
		m.log.Warnw("failed to refresh status after IP config update", "error", err)
		return
	}
	m.broadcastStatus(snap)
}

// reconcileResume implements the suspend/resume reconciler (C6), invoked
// once Resume unblocks the dispatch goroutine.
func (m *Manager) reconcileResume() {
	link, _, err := m.ec.SyncState()
	if err != nil {
		m.log.Warnw("resume sync state failed", "error", err)
		return
	}

	switch link {
	case ports.LinkConnected:
		switch m.wifiState {
		case StateConnected, StateError:
			// Either everything is fine, or C5 will handle the
			// Error on the next poll cycle — leave state alone.
		default:
			// We believed we were not connected, yet the EC now
			// reports connected: distrust the report and
			// re-initiate rather than trust a possibly-stale link.
			m.leaveAndRescan()
		}

	case ports.LinkWFXError:
		m.setState(StateError)

	default: // disconnected-ish
		switch m.wifiState {
		case StateConnected:
			if err := m.net.Reset(); err != nil {
				m.log.Warnw("net stack reset failed", "error", err)
			}
			m.broadcastDefaultOnDisconnect()
			m.setState(StateDisconnected)
			// The edge has been broadcast here; keep the next poll's
			// edge detection from broadcasting it a second time.
			m.lastWifiState = StateDisconnected
			m.startScanIfIdle()
		case StateError:
			// Let the error handler run on the next poll cycle.
		default:
			m.setState(StateDisconnected)
		}
	}
}

func (m *Manager) leaveAndRescan() {
	if err := m.ec.Leave(); err != nil {
		m.log.Warnw("leave command failed", "error", err)
	}
	if err := m.net.Reset(); err != nil {
		m.log.Warnw("net stack reset failed", "error", err)
	}
	m.setState(StateDisconnected)
	m.startScanIfIdle()
	m.selfPoll()
}
