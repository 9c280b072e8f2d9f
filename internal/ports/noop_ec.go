/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package ports

// NoOpEC is a placeholder EC that reports firmware "0.0.0.0" (always
// below MinECRev) and answers every other call with a zero value.
// Driving the radio chip is explicitly out of scope for this core; a
// board brings its own EC implementation satisfying the EC interface.
// NoOpEC exists so the daemon has something to construct against when no
// such implementation has been wired in yet, and so the "EC too old"
// startup path (spec.md §4.7) has a concrete exerciser outside of tests.
type NoOpEC struct{}

// FirmwareVersion always reports a version below any real MinECRev.
func (NoOpEC) FirmwareVersion() (string, error) { return "0.0.0.0", nil }

// SetSSIDScanning is a no-op.
func (NoOpEC) SetSSIDScanning(bool) error { return nil }

// ScanResults always reports no visible APs.
func (NoOpEC) ScanResults() ([]ScannedAp, error) { return nil, nil }

// SetSSID is a no-op.
func (NoOpEC) SetSSID(string) error { return nil }

// SetPassphrase is a no-op.
func (NoOpEC) SetPassphrase(string) error { return nil }

// Join is a no-op.
func (NoOpEC) Join() error { return nil }

// Leave is a no-op.
func (NoOpEC) Leave() error { return nil }

// Status always reports the default (disconnected) snapshot.
func (NoOpEC) Status() (StatusSnapshot, error) { return DefaultSnapshot(), nil }

// RSSI always reports RSSIUnknown.
func (NoOpEC) RSSI() (uint8, error) { return RSSIUnknown, nil }

// SyncState always reports disconnected.
func (NoOpEC) SyncState() (LinkState, DHCPState, error) {
	return LinkDisconnected, DHCPUnknown, nil
}

// Reset is a no-op.
func (NoOpEC) Reset() error { return nil }
