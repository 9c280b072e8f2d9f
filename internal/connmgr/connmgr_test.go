/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package connmgr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wifimgrd/internal/metrics"
	"wifimgrd/internal/ports"
	"wifimgrd/internal/subscriber"
)

// fakeEC is a test double for ports.EC whose every method is driven by a
// field the test sets up front, letting each scenario script exactly the
// EC behavior spec.md's end-to-end walkthroughs describe.
type fakeEC struct {
	firmware string

	scanResults []ports.ScannedAp
	scanErr     error

	setSSIDErr error
	setPassErr error
	joinErr    error
	leaveErr   error
	resetErr   error

	statusSnap ports.StatusSnapshot
	statusErr  error

	rssi    uint8
	rssiErr error

	syncLink  ports.LinkState
	syncDHCP  ports.DHCPState
	syncErr   error

	joins  int
	leaves int
	resets int

	lastSSID string
	lastPass string
}

func (f *fakeEC) FirmwareVersion() (string, error) { return f.firmware, nil }
func (f *fakeEC) SetSSIDScanning(bool) error        { return nil }
func (f *fakeEC) ScanResults() ([]ports.ScannedAp, error) {
	return f.scanResults, f.scanErr
}
func (f *fakeEC) SetSSID(ssid string) error {
	f.lastSSID = ssid
	return f.setSSIDErr
}
func (f *fakeEC) SetPassphrase(pass string) error {
	f.lastPass = pass
	return f.setPassErr
}
func (f *fakeEC) Join() error {
	f.joins++
	return f.joinErr
}
func (f *fakeEC) Leave() error {
	f.leaves++
	return f.leaveErr
}
func (f *fakeEC) Status() (ports.StatusSnapshot, error) { return f.statusSnap, f.statusErr }
func (f *fakeEC) RSSI() (uint8, error)                  { return f.rssi, f.rssiErr }
func (f *fakeEC) SyncState() (ports.LinkState, ports.DHCPState, error) {
	return f.syncLink, f.syncDHCP, f.syncErr
}
func (f *fakeEC) Reset() error {
	f.resets++
	return f.resetErr
}

type fakeNetStack struct{ resets int }

func (n *fakeNetStack) Reset() error {
	n.resets++
	return nil
}

type fakeNotifier struct{ messages []string }

func (n *fakeNotifier) Notify(msg string) { n.messages = append(n.messages, msg) }

func newTestManager(t *testing.T, ec *fakeEC, net *fakeNetStack, notifier *fakeNotifier) (*Manager, *ports.FileCredentialStore) {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	creds := ports.NewFileCredentialStore(fs, "/etc/wifimgrd", nil)

	reg := prometheus.NewRegistry()
	mcol := metrics.New(reg)

	mgr, err := New(Config{
		EC:              ec,
		CredentialStore: creds,
		NetStack:        net,
		Notifier:        notifier,
		Log:             logger.Sugar(),
		Metrics:         mcol,
	})
	require.NoError(t, err)
	return mgr, creds
}

func TestConstructionGatesOnFirmwareRevision(t *testing.T) {
	notifier := &fakeNotifier{}
	mgr, _ := newTestManager(t, &fakeEC{firmware: "0.1.0.0"}, &fakeNetStack{}, notifier)

	assert.False(t, mgr.runEnabled)
	assert.Len(t, notifier.messages, 1)
}

func TestConstructionEnablesRunOnSufficientFirmware(t *testing.T) {
	mgr, _ := newTestManager(t, &fakeEC{firmware: "2.0.0.0"}, &fakeNetStack{}, &fakeNotifier{})
	assert.True(t, mgr.runEnabled)
}

// Scenario 1: happy path.
func TestHappyPath(t *testing.T) {
	ec := &fakeEC{
		firmware:    "2.0.0.0",
		scanResults: []ports.ScannedAp{{SSID: "home", RSSI: 40}},
	}
	net := &fakeNetStack{}
	mgr, creds := newTestManager(t, ec, net, &fakeNotifier{})
	require.NoError(t, creds.WritePassphrase("home", "hunter2"))

	mgr.handleInterrupt(irqWlanSSIDScanFinished, 0)
	assert.Contains(t, mgr.ssidList, "home")

	mgr.activityInterval = mgr.pollIntervalMS + 1
	mgr.handlePoll()
	assert.Equal(t, StateConnecting, mgr.wifiState)
	assert.Equal(t, 1, ec.joins)
	assert.Equal(t, "home", ec.lastSSID)
	assert.Equal(t, "hunter2", ec.lastPass)

	mgr.handleInterrupt(irqConnect, uint16(ports.ConnectSuccess))
	assert.Equal(t, StateWaitDhcp, mgr.wifiState)

	var broadcasts []ports.StatusSnapshot
	h, err := mgr.subs.Subscribe(subscription(&broadcasts))
	require.NoError(t, err)
	defer mgr.subs.Unsubscribe(h)

	ec.statusSnap = ports.StatusSnapshot{Ssid: &ports.SsidInfo{Name: "home", RSSI: 40}, Link: ports.LinkConnected, IP: ports.DHCPBound}
	mgr.handleInterrupt(irqWlanIPConfigUpdate, 0)

	assert.Equal(t, StateConnected, mgr.wifiState)
	require.Len(t, broadcasts, 1)
	assert.Equal(t, "home", broadcasts[0].Ssid.Name)
}

// Scenario 2: bad password, then cyclic reselection.
func TestBadPasswordThenCycles(t *testing.T) {
	ec := &fakeEC{
		firmware:    "2.0.0.0",
		scanResults: []ports.ScannedAp{{SSID: "home", RSSI: 40}},
	}
	mgr, creds := newTestManager(t, ec, &fakeNetStack{}, &fakeNotifier{})
	require.NoError(t, creds.WritePassphrase("home", "wrongpw"))

	mgr.handleInterrupt(irqWlanSSIDScanFinished, 0)
	mgr.activityInterval = mgr.pollIntervalMS + 1
	mgr.handlePoll()
	require.Equal(t, StateConnecting, mgr.wifiState)

	mgr.handleInterrupt(irqConnect, uint16(ports.ConnectAuthFail))
	assert.Equal(t, StateInvalidAuth, mgr.wifiState)

	// Next poll re-selects; "home" is the only candidate, so once
	// ssid_attempted is exhausted the selector must cycle back to it.
	mgr.activityInterval = mgr.pollIntervalMS + 1
	mgr.handlePoll()
	assert.Equal(t, StateConnecting, mgr.wifiState)
	assert.Equal(t, 2, ec.joins)
}

// Scenario 3: timeout then retry, with the immediate self-poll.
func TestTimeoutThenRetry(t *testing.T) {
	ec := &fakeEC{
		firmware:    "2.0.0.0",
		scanResults: []ports.ScannedAp{{SSID: "home", RSSI: 40}},
	}
	net := &fakeNetStack{}
	mgr, creds := newTestManager(t, ec, net, &fakeNotifier{})
	require.NoError(t, creds.WritePassphrase("home", "hunter2"))

	mgr.handleInterrupt(irqWlanSSIDScanFinished, 0)
	// One poll issues the join, IntervalsBeforeRetry+1 more push the
	// wait count past the budget into Retry, and one more runs Retry's
	// handler (leave, net reset, Disconnected).
	for i := 0; i < IntervalsBeforeRetry+3; i++ {
		mgr.activityInterval = mgr.pollIntervalMS + 1
		mgr.handlePoll()
	}

	// Retry's self-poll only lands in the inbox, which no dispatch loop
	// drains in this test, so assert the state transition directly.
	assert.Equal(t, StateDisconnected, mgr.wifiState)
	assert.Equal(t, 1, ec.leaves)
	assert.Equal(t, 1, net.resets)
}

// Scenario 4: move out of range.
func TestMoveOutOfRange(t *testing.T) {
	ec := &fakeEC{firmware: "2.0.0.0"}
	mgr, _ := newTestManager(t, ec, &fakeNetStack{}, &fakeNotifier{})
	mgr.setState(StateConnected)
	mgr.ssidList["home"] = struct{}{}

	var broadcasts []ports.StatusSnapshot
	_, err := mgr.subs.Subscribe(subscription(&broadcasts))
	require.NoError(t, err)

	mgr.handleInterrupt(irqDisconnect, 0)
	assert.Equal(t, StateDisconnected, mgr.wifiState)
	assert.Empty(t, mgr.ssidList)
	assert.Equal(t, ScanScanning, mgr.scanState)

	// The default broadcast for leaving Connected happens via poll
	// edge detection, not the interrupt itself (P3).
	assert.Empty(t, broadcasts)
	mgr.lastWifiState = StateConnected
	mgr.activityInterval = mgr.pollIntervalMS + 1
	mgr.handlePoll()
	require.Len(t, broadcasts, 1)
	assert.True(t, cmp.Equal(ports.DefaultSnapshot(), broadcasts[0]))
}

// Scenario 5: resume divergence.
func TestResumeDivergence(t *testing.T) {
	ec := &fakeEC{firmware: "2.0.0.0", syncLink: ports.LinkConnected}
	net := &fakeNetStack{}
	mgr, _ := newTestManager(t, ec, net, &fakeNotifier{})
	mgr.setState(StateDisconnected)

	mgr.reconcileResume()

	assert.Equal(t, StateDisconnected, mgr.wifiState)
	assert.Equal(t, 1, ec.leaves)
	assert.Equal(t, 1, net.resets)
}

// Scenario 6: old firmware.
func TestOldFirmwareNeverJoins(t *testing.T) {
	ec := &fakeEC{firmware: "0.1.0.0", scanResults: []ports.ScannedAp{{SSID: "home"}}}
	notifier := &fakeNotifier{}
	mgr, creds := newTestManager(t, ec, &fakeNetStack{}, notifier)
	require.NoError(t, creds.WritePassphrase("home", "hunter2"))

	require.False(t, mgr.runEnabled)
	require.Len(t, notifier.messages, 1)

	// Even if a poll somehow reached the dispatcher, revOK gates the
	// reconciliation pass itself.
	mgr.activityInterval = mgr.pollIntervalMS + 1
	mgr.handlePoll()
	assert.Equal(t, 0, ec.joins)
}

// P6: resume idempotence.
func TestResumeIdempotenceWhenAlreadyConnected(t *testing.T) {
	ec := &fakeEC{firmware: "2.0.0.0", syncLink: ports.LinkConnected}
	mgr, _ := newTestManager(t, ec, &fakeNetStack{}, &fakeNotifier{})
	mgr.setState(StateConnected)

	mgr.reconcileResume()

	assert.Equal(t, StateConnected, mgr.wifiState)
	assert.Equal(t, 0, ec.leaves)
}

// P4: RSSI suppression.
func TestRSSISuppressedWhenUnchanged(t *testing.T) {
	ec := &fakeEC{firmware: "2.0.0.0", rssi: 50}
	mgr, _ := newTestManager(t, ec, &fakeNetStack{}, &fakeNotifier{})
	mgr.setState(StateConnected)
	mgr.statusCache = ports.StatusSnapshot{Ssid: &ports.SsidInfo{Name: "home", RSSI: 50}, Link: ports.LinkConnected, IP: ports.DHCPBound}

	var broadcasts []ports.StatusSnapshot
	_, err := mgr.subs.Subscribe(subscription(&broadcasts))
	require.NoError(t, err)

	mgr.suppressedRSSIBroadcast()
	assert.Empty(t, broadcasts, "unchanged RSSI must not trigger a broadcast")

	ec.rssi = 61
	mgr.suppressedRSSIBroadcast()
	require.Len(t, broadcasts, 1)
	assert.Equal(t, uint8(61), broadcasts[0].Ssid.RSSI)
}

func subscription(out *[]ports.StatusSnapshot) subscriber.Subscription {
	return subscriber.Subscription{Deliver: func(s ports.StatusSnapshot) error {
		*out = append(*out, s)
		return nil
	}}
}

// TestMinECRevParses confirms a dotted four-segment firmware string
// parses and compares against MinECRev.
func TestMinECRevParses(t *testing.T) {
	v, err := version.NewVersion("1.2.3.4")
	require.NoError(t, err)
	assert.True(t, v.GreaterThan(MinECRev))
}
