/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package connmgr

import (
	"wifimgrd/internal/ports"
	"wifimgrd/internal/selector"
)

// handlePoll implements the poll-driven reconciliation pass (spec.md
// §4.5). It runs a full dispatch only when the accumulated activity
// interval has exceeded one poll period, the credential store is
// mounted, and the EC firmware meets the minimum revision — otherwise it
// only advances the RSSI-suppression and adaptive-interval bookkeeping
// that don't depend on any of those gates.
func (m *Manager) handlePoll() {
	if m.creds.IsMounted() {
		m.mounted = true
	}

	m.activityInterval += m.pollIntervalMS
	if m.activityInterval > m.pollIntervalMS {
		if m.creds.IsMounted() && m.revOK {
			m.reconcilePoll()
		}
		m.lastWifiState = m.wifiState
	}

	if m.wifiState == StateConnected {
		m.suppressedRSSIBroadcast()
	}

	if !m.mounted {
		m.pollIntervalMS = m.bootPollMS
	} else {
		m.pollIntervalMS = m.nominalPollMS
	}
	m.pump.StoreInterval(m.pollIntervalMS)
}

func (m *Manager) reconcilePoll() {
	// Edge detection: broadcast the default snapshot exactly once when
	// leaving Connected, however the transition happened (interrupt or
	// poll), per P3.
	if m.lastWifiState == StateConnected && m.wifiState != StateConnected {
		m.broadcastDefaultOnDisconnect()
	}

	knownAPs, err := m.creds.KnownSSIDs()
	if err != nil {
		m.log.Warnw("failed to list known SSIDs", "error", err)
		return
	}

	switch {
	case isSelectingState(m.wifiState):
		m.pollSelectAndJoin(knownAPs)

	case m.wifiState == StateConnecting, m.wifiState == StateWaitDhcp:
		m.waitCount++
		if m.waitCount > IntervalsBeforeRetry {
			m.waitCount = 0
			m.setState(StateRetry)
		}

	case m.wifiState == StateRetry:
		m.metrics.Retries.Inc()
		if err := m.ec.Leave(); err != nil {
			m.log.Warnw("leave command failed", "error", err)
		}
		if err := m.net.Reset(); err != nil {
			m.log.Warnw("net stack reset failed", "error", err)
		}
		m.setState(StateDisconnected)
		m.startScanIfIdle()
		m.selfPoll()

	case m.wifiState == StateError:
		m.metrics.ECErrors.Inc()
		if err := m.ec.Reset(); err != nil {
			m.log.Warnw("EC radio reset failed", "error", err)
		}
		if err := m.net.Reset(); err != nil {
			m.log.Warnw("net stack reset failed", "error", err)
		}
		m.setState(StateDisconnected)
		m.startScanIfIdle()
		m.selfPoll()

	case m.wifiState == StateConnected:
		snap, err := m.ec.Status()
		if err != nil {
			m.log.Warnw("failed to refresh status on poll", "error", err)
			return
		}
		m.broadcastStatus(snap)
	}
}

// pollSelectAndJoin selects a candidate and attempts to join it. A
// candidate whose credential can't be read is skipped in favor of the
// next one in the same poll, per spec.md §7 ("next candidate tried on
// the same poll"); maxAttempts bounds the loop against the pool size so
// a run of unreadable credentials can't spin past this poll cycle. A
// failure from the EC itself (SetSSID/SetPassphrase/Join) ends the poll
// rather than advancing to the next candidate, since it signals a radio
// or protocol problem rather than something specific to the candidate.
func (m *Manager) pollSelectAndJoin(knownAPs map[string]struct{}) {
	m.stopScanIfActive()

	maxAttempts := len(knownAPs) + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ssid, ok := selector.Select(m.ssidList, m.ssidAttempted, knownAPs)
		if !ok {
			m.noCandidateLog.Infof("no SSID candidate available (visible=%d known=%d)",
				len(m.ssidList), len(knownAPs))
			return
		}

		pass, err := ports.ReadPassphrase(m.creds, ssid)
		if err != nil {
			m.log.Warnw("skipping candidate with unreadable credential", "ssid", ssid, "error", err)
			continue
		}

		if err := m.ec.SetSSID(ssid); err != nil {
			m.log.Warnw("failed to set SSID", "ssid", ssid, "error", err)
			return
		}
		if err := m.ec.SetPassphrase(pass); err != nil {
			m.log.Warnw("failed to set passphrase", "ssid", ssid, "error", err)
			return
		}
		if err := m.ec.Join(); err != nil {
			m.log.Warnw("join command failed", "ssid", ssid, "error", err)
			return
		}

		m.metrics.JoinsIssued.Inc()
		m.waitCount = 0
		m.setState(StateConnecting)
		return
	}
}

// suppressedRSSIBroadcast reads the current RSSI and broadcasts only if
// it changed from the cached value, suppressing update storms (P4).
func (m *Manager) suppressedRSSIBroadcast() {
	if m.statusCache.Ssid == nil {
		return
	}

	rssi, err := m.ec.RSSI()
	if err != nil {
		rssi = ports.RSSIUnknown
	}
	if rssi == m.statusCache.Ssid.RSSI {
		return
	}

	updated := m.statusCache
	ssidCopy := *updated.Ssid
	ssidCopy.RSSI = rssi
	updated.Ssid = &ssidCopy
	m.broadcastStatus(updated)
}
