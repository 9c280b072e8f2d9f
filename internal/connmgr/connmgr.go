/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package connmgr implements the core of the Wi-Fi connection manager:
// the event multiplexer (C4), the Wi-Fi state machine (C5), and the
// suspend/resume reconciler (C6). All three are serialized onto a single
// goroutine (Manager.run), matching the single-writer discipline the
// spec requires for WifiState, ScanState, the SSID sets, the status
// snapshot cache, and the subscriber registry.
package connmgr

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"wifimgrd/internal/logging"
	"wifimgrd/internal/metrics"
	"wifimgrd/internal/pump"
	"wifimgrd/internal/ports"
	"wifimgrd/internal/selector"
	"wifimgrd/internal/subscriber"
)

// Poll cadences and retry budget, per spec.md §6.
const (
	BootPollIntervalMS    = 3758
	NominalPollIntervalMS = 10151
	IntervalsBeforeRetry  = 3
)

// MinECRev is the minimum EC firmware version this core will drive,
// encoded as "major.minor.rev.commits" (a four-segment version
// hashicorp/go-version compares numerically segment by segment — unlike
// a "+build" suffix, which go-version treats as ignored metadata, every
// segment here participates in the comparison, matching the packed
// (maj<<24)|(min<<16)|(rev<<8)|commits comparison spec.md §6 specifies).
var MinECRev = version.Must(version.NewVersion("1.0.0.0"))

// Manager owns the state machine and runs the single dispatch goroutine.
type Manager struct {
	ec    ports.EC
	creds ports.CredentialStore
	net   ports.NetStack
	note  ports.Notifier

	pump    *pump.Pump
	subs    *subscriber.Registry
	metrics *metrics.Collectors
	log     *zap.SugaredLogger

	inbox chan message

	resumeCh chan struct{}
	doneCh   chan struct{}

	// --- fields below are owned exclusively by the run() goroutine ---

	runEnabled    bool
	revOK         bool
	wifiState     WifiState
	lastWifiState WifiState
	scanState     ScanState

	ssidList      map[string]struct{}
	ssidAttempted map[string]struct{}
	waitCount     int

	activityInterval uint32
	pollIntervalMS   uint32
	bootPollMS       uint32
	nominalPollMS    uint32
	mounted          bool

	statusCache ports.StatusSnapshot

	noCandidateLog *logging.ThrottledLogger
}

// Config bundles the Manager's construction-time dependencies.
type Config struct {
	EC              ports.EC
	CredentialStore ports.CredentialStore
	NetStack        ports.NetStack
	Notifier        ports.Notifier
	Log             *zap.SugaredLogger
	Metrics         *metrics.Collectors
	SubscriberCap   int
	MinECRev        *version.Version

	// BootPollMS and NominalPollMS override the BootPollIntervalMS and
	// NominalPollIntervalMS constants; zero means "use the default."
	BootPollMS    uint32
	NominalPollMS uint32
}

// New constructs a Manager, querying the EC firmware version and gating
// run_enabled on it exactly as spec.md §4.7 describes: if the firmware
// is below MinECRev, a notification is raised and the pump remains
// inert (ticks continue, but poll reconciliation short-circuits).
func New(cfg Config) (*Manager, error) {
	if cfg.MinECRev == nil {
		cfg.MinECRev = MinECRev
	}
	if cfg.SubscriberCap <= 0 {
		cfg.SubscriberCap = subscriber.DefaultCapacity
	}
	if cfg.BootPollMS == 0 {
		cfg.BootPollMS = BootPollIntervalMS
	}
	if cfg.NominalPollMS == 0 {
		cfg.NominalPollMS = NominalPollIntervalMS
	}

	m := &Manager{
		ec:             cfg.EC,
		creds:          cfg.CredentialStore,
		net:            cfg.NetStack,
		note:           cfg.Notifier,
		pump:           pump.New(cfg.BootPollMS),
		subs:           subscriber.New(cfg.SubscriberCap, cfg.Log),
		metrics:        cfg.Metrics,
		log:            cfg.Log,
		inbox:          make(chan message, 8),
		resumeCh:       make(chan struct{}),
		doneCh:         make(chan struct{}),
		wifiState:      StateUnknown,
		lastWifiState:  StateUnknown,
		scanState:      ScanIdle,
		ssidList:       make(map[string]struct{}),
		ssidAttempted:  make(map[string]struct{}),
		pollIntervalMS: cfg.BootPollMS,
		bootPollMS:     cfg.BootPollMS,
		nominalPollMS:  cfg.NominalPollMS,
		statusCache:    ports.DefaultSnapshot(),
		noCandidateLog: logging.GetThrottledLogger(cfg.Log, time.Second, time.Minute),
	}

	m.subs.SetFailureHook(func() { m.metrics.BroadcastsFailed.Inc() })

	revOK, err := m.checkFirmwareRev(cfg.MinECRev)
	if err != nil {
		return nil, errors.Wrap(err, "querying EC firmware version")
	}
	m.runEnabled = revOK
	m.revOK = revOK

	if err := m.ec.SetSSIDScanning(true); err != nil {
		m.log.Warnw("initial scan request failed", "error", err)
	} else {
		m.scanState = ScanScanning
	}

	return m, nil
}

func (m *Manager) checkFirmwareRev(min *version.Version) (bool, error) {
	raw, err := m.ec.FirmwareVersion()
	if err != nil {
		return false, err
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return false, errors.Wrapf(err, "parsing EC firmware version %q", raw)
	}
	if v.LessThan(min) {
		m.note.Notify(fmt.Sprintf(
			"EC firmware %s is too old to interoperate with the connection manager (need >= %s)",
			v, min))
		return false, nil
	}
	return true, nil
}

// Start launches the pump and multiplexer goroutines. It does not block.
func (m *Manager) Start() {
	go m.pump.Loop()
	go func() {
		for tick := range m.pump.Ticks() {
			_ = tick
			m.inbox <- message{op: opPoll}
		}
	}()
	if m.runEnabled {
		m.pump.Run()
	}
	go m.run()
}

// Run enables the poll pump (fire-and-forget), per spec.md §4.4.
func (m *Manager) Run() {
	m.inbox <- message{op: opRun}
}

// Stop disables the poll pump (fire-and-forget); an in-flight cycle
// completes but no further cycles start.
func (m *Manager) Stop() {
	m.inbox <- message{op: opStop}
}

// SendInterrupt decodes and feeds an EC interrupt mask/arg pair into the
// state machine (fire-and-forget, matching the IRQ dispatcher's
// fire-and-forget delivery into C4).
func (m *Manager) SendInterrupt(mask, arg uint16) {
	m.inbox <- message{op: opInterrupt, interruptMask: mask, interruptArg: arg}
}

// Subscribe registers desc for status broadcasts.
func (m *Manager) Subscribe(desc subscriber.Subscription) (subscriber.Handle, error) {
	result := make(chan subscribeResult, 1)
	m.inbox <- message{op: opSubscribe, subDesc: desc, subResult: result}
	r := <-result
	return r.handle, r.err
}

// UnsubscribeWireID removes the subscription identified by the wire-level
// handle sid and returns its acknowledgement, matching
// UnsubWifiStats{sid} -> ack.
func (m *Manager) UnsubscribeWireID(sid [4]uint32) uint32 {
	ack := make(chan uint32, 1)
	m.inbox <- message{op: opUnsubscribe, unsubWireID: sid, unsubAck: ack}
	return <-ack
}

// Suspend acknowledges the suspend token and blocks the dispatch
// goroutine until Resume is called, at which point it runs the
// suspend/resume reconciler (C6) before processing any further messages.
func (m *Manager) Suspend(token uint32) uint32 {
	ack := make(chan uint32, 1)
	m.inbox <- message{op: opSuspend, suspendToken: token, suspendAck: ack}
	return <-ack
}

// Resume unblocks a goroutine parked in Suspend.
func (m *Manager) Resume() {
	m.resumeCh <- struct{}{}
}

// Quit requests hard termination: the pump is quit (blocking ack), no
// further messages are drained, and the acknowledgement is returned once
// teardown is complete.
func (m *Manager) Quit() uint32 {
	ack := make(chan uint32, 1)
	m.inbox <- message{op: opQuit, quitAck: ack}
	r := <-ack
	<-m.doneCh
	return r
}

func (m *Manager) run() {
	for msg := range m.inbox {
		switch msg.op {
		case opRun:
			m.pump.Run()

		case opStop:
			m.pump.Stop()

		case opPoll:
			m.metrics.PollCycles.Inc()
			m.handlePoll()

		case opInterrupt:
			m.handleInterrupt(msg.interruptMask, msg.interruptArg)

		case opSuspend:
			msg.suspendAck <- 1
			<-m.resumeCh
			m.reconcileResume()

		case opSubscribe:
			h, err := m.subs.Subscribe(msg.subDesc)
			m.metrics.Subscribers.Set(float64(m.subs.Len()))
			msg.subResult <- subscribeResult{handle: h, err: err}

		case opUnsubscribe:
			// Ack precedes teardown (spec.md Open Question (a)): the
			// caller must be free to proceed (and tear down its own
			// side of the channel) before we drop our handle to it.
			msg.unsubAck <- 1
			m.subs.UnsubscribeWireID(msg.unsubWireID)
			m.metrics.Subscribers.Set(float64(m.subs.Len()))

		case opQuit:
			m.pump.Quit()
			msg.quitAck <- 0
			close(m.doneCh)
			return

		default:
			m.log.Warnw("unrecognized message", "op", msg.op)
		}

		m.metrics.SetState(stateLabels(), m.wifiState.String())
	}
}

func stateLabels() []string {
	labels := make([]string, len(AllStates))
	for i, s := range AllStates {
		labels[i] = s.String()
	}
	return labels
}

func (m *Manager) setState(s WifiState) {
	m.wifiState = s
}

// broadcastDefaultOnDisconnect implements the "edge detection" rule shared
// by poll reconciliation and the resume reconciler: a default snapshot is
// broadcast exactly once on any transition out of Connected.
func (m *Manager) broadcastDefaultOnDisconnect() {
	m.statusCache = ports.DefaultSnapshot()
	m.subs.Broadcast(m.statusCache)
	m.metrics.BroadcastsSent.Inc()
}

func (m *Manager) broadcastStatus(snap ports.StatusSnapshot) {
	m.statusCache = snap
	m.subs.Broadcast(snap)
	m.metrics.BroadcastsSent.Inc()
}

func (m *Manager) startScanIfIdle() {
	if m.scanState == ScanIdle {
		if err := m.ec.SetSSIDScanning(true); err != nil {
			m.log.Warnw("failed to start SSID scan", "error", err)
			return
		}
		m.scanState = ScanScanning
	}
}

func (m *Manager) stopScanIfActive() {
	if m.scanState == ScanScanning {
		if err := m.ec.SetSSIDScanning(false); err != nil {
			m.log.Warnw("failed to stop SSID scan", "error", err)
			return
		}
		m.scanState = ScanIdle
	}
}

// selfPoll injects a fresh Poll so the next selection is not delayed by a
// full poll period, per spec.md §4.5/§9 ("self-injected poll").
func (m *Manager) selfPoll() {
	select {
	case m.inbox <- message{op: opPoll}:
	default:
		// Inbox briefly full; the pump's own next tick will still
		// drive reconciliation forward.
		m.log.Debugw("self-poll dropped, inbox full")
	}
}
