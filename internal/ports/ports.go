/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package ports defines the four external collaborators the connection
// manager drives: the embedded controller (EC), the credential store, the
// net stack, and the host notifier. Each is specified only by the
// operations the state machine consumes, per the "typed facade" pattern
// used throughout bg/ap_common for hardware and daemon boundaries.
package ports

import (
	"errors"
	"io"
)

// WF200PassMaxLen bounds the length of a stored passphrase, mirroring the
// WF200 radio's own limit in the original firmware protocol.
const WF200PassMaxLen = 64

// ConnectResult is the decoded outcome of an EC Connect interrupt.
type ConnectResult int

// The full set of outcomes the EC protocol can report for a join attempt.
const (
	ConnectSuccess ConnectResult = iota
	ConnectNoMatchingAp
	ConnectTimeout
	ConnectReject
	ConnectAuthFail
	ConnectAborted
	ConnectError
	ConnectPending
)

func (r ConnectResult) String() string {
	switch r {
	case ConnectSuccess:
		return "success"
	case ConnectNoMatchingAp:
		return "no-matching-ap"
	case ConnectTimeout:
		return "timeout"
	case ConnectReject:
		return "reject"
	case ConnectAuthFail:
		return "auth-fail"
	case ConnectAborted:
		return "aborted"
	case ConnectError:
		return "error"
	case ConnectPending:
		return "pending"
	default:
		return "unknown"
	}
}

// LinkState is the EC's view of the radio's association state, as reported
// by wlan_sync_state on resume.
type LinkState int

// Link states the EC can report.
const (
	LinkUnknown LinkState = iota
	LinkConnected
	LinkDisconnected
	LinkWFXError
)

// DHCPState is the EC's view of IP configuration progress.
type DHCPState int

// DHCP states the EC can report.
const (
	DHCPUnknown DHCPState = iota
	DHCPWaiting
	DHCPBound
)

// RSSIUnknown stands in for the RSSI when a reading fails, matching the
// original connection manager's unwrap_or(255) default.
const RSSIUnknown uint8 = 255

// SsidInfo names the AP currently associated with and its last-known
// signal strength.
type SsidInfo struct {
	Name string
	RSSI uint8
}

// StatusSnapshot is the fixed-layout record fanned out to subscribers.
// The zero value is the "default" (disconnected) snapshot.
type StatusSnapshot struct {
	Ssid *SsidInfo
	Link LinkState
	IP   DHCPState
}

// DefaultSnapshot returns a disconnected, zero-information snapshot —
// what gets broadcast on every exit from Connected.
func DefaultSnapshot() StatusSnapshot {
	return StatusSnapshot{Link: LinkDisconnected, IP: DHCPUnknown}
}

// ScannedAp is one entry from an EC scan-result fetch: an SSID and its
// RSSI at scan time.
type ScannedAp struct {
	SSID string
	RSSI uint8
}

// Sentinel errors for the taxonomy in the error-handling design. The
// github.com/pkg/errors version this module pins (v0.8.1) gives its
// wrappers a Cause method but no Unwrap, so callers recover the sentinel
// with errors.Cause from that package rather than with errors.Is.
var (
	// ErrProtocolViolation marks an EC response the protocol does not
	// allow (e.g. Pending reported as a terminal ConnectResult).
	ErrProtocolViolation = errors.New("ports: EC protocol violation")
	// ErrCapacityExceeded marks a subscribe attempt against a full
	// subscriber registry.
	ErrCapacityExceeded = errors.New("ports: subscriber capacity exceeded")
	// ErrCredentialMissing marks a known SSID whose passphrase could
	// not be read or was not valid UTF-8.
	ErrCredentialMissing = errors.New("ports: credential missing or unreadable")
	// ErrFirmwareTooOld marks an EC firmware revision below MinECRev.
	ErrFirmwareTooOld = errors.New("ports: EC firmware below minimum revision")
)

// EC is the radio control and interrupt source. Driving the radio chip
// itself is out of scope; this interface names only the operations the
// state machine issues against it.
type EC interface {
	// FirmwareVersion reports the EC's firmware tag as the dotted
	// four-segment string "major.minor.rev.commits", suitable for
	// parsing and numeric comparison with hashicorp/go-version.
	FirmwareVersion() (string, error)
	SetSSIDScanning(enabled bool) error
	ScanResults() ([]ScannedAp, error)
	SetSSID(ssid string) error
	SetPassphrase(pass string) error
	Join() error
	Leave() error
	Status() (StatusSnapshot, error)
	RSSI() (uint8, error)
	SyncState() (LinkState, DHCPState, error)
	Reset() error
}

// CredentialStore is the known-SSID dictionary and passphrase retrieval
// port. Securing credential storage at rest is out of scope; this names
// only the read-only operations the selector and state machine consume.
type CredentialStore interface {
	IsMounted() bool
	KnownSSIDs() (map[string]struct{}, error)
	OpenPassphrase(ssid string) (io.ReadCloser, error)
}

// NetStack is the minimal facade C5 uses to reset IP state after a leave.
// Parsing or generating IP traffic is out of scope.
type NetStack interface {
	Reset() error
}

// Notifier surfaces a user-visible message, used only for the fatal
// "EC too old" startup condition.
type Notifier interface {
	Notify(msg string)
}
