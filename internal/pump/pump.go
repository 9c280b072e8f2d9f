/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package pump implements the poll pump (C3): a dedicated worker that
// periodically emits Poll ticks into the event multiplexer's inbox, at a
// cadence controlled by a shared atomic interval.
package pump

import (
	"sync/atomic"
	"time"
)

// Pump periodically emits a tick on Ticks, gated by Run/Stop and
// coalescing so a Run received mid-cycle does not inject a duplicate
// tick — the goroutine already mid-sleep will wake and emit on its own.
type Pump struct {
	// Interval is read on each cycle via atomic load; set with
	// StoreInterval from the owning goroutine (the connection
	// manager), which is the only place the spec allows PollInterval
	// to be written from.
	interval atomic.Int64 // milliseconds

	runEnabled atomic.Bool
	pumping    atomic.Bool

	ticks chan struct{}
	quit  chan chan struct{}

	newTimer func(time.Duration) *time.Timer
}

// New builds a pump with the given initial interval. The Ticks channel
// has a buffer of 1, which is sufficient since the multiplexer drains
// promptly and the pump itself coalesces bursts via the pumping flag.
func New(initialIntervalMS uint32) *Pump {
	p := &Pump{
		ticks:    make(chan struct{}, 1),
		quit:     make(chan chan struct{}),
		newTimer: time.NewTimer,
	}
	p.interval.Store(int64(initialIntervalMS))
	return p
}

// Ticks is the channel the event multiplexer drains Poll ticks from.
func (p *Pump) Ticks() <-chan struct{} {
	return p.ticks
}

// StoreInterval updates the poll cadence for subsequent cycles. Safe to
// call from the connection manager's goroutine concurrently with the
// pump's own goroutine reading it, per the spec's "PollInterval is a
// process-wide atomic" design.
func (p *Pump) StoreInterval(ms uint32) {
	p.interval.Store(int64(ms))
}

// Run enables the pump; if no cycle is currently in flight, it also wakes
// the loop immediately rather than waiting out a stale sleep. Coalesces
// with an already-enabled pump (fire-and-forget message semantics: a
// second Run while already running is a no-op signal, not a double
// start).
func (p *Pump) Run() {
	if !p.runEnabled.Swap(true) {
		if !p.pumping.Load() {
			p.fire()
		}
	}
}

// Stop disables the pump. An in-flight cycle completes, but no further
// cycles start until Run is called again.
func (p *Pump) Stop() {
	p.runEnabled.Store(false)
}

func (p *Pump) fire() {
	select {
	case p.ticks <- struct{}{}:
	default:
		// A tick is already pending; the multiplexer hasn't drained
		// it yet. Dropping a redundant wakeup here is harmless — the
		// pending tick will still run the next poll cycle.
	}
}

// Loop runs the pump until Quit is called. Call it on its own goroutine.
func (p *Pump) Loop() {
	for {
		if p.runEnabled.Load() {
			p.pumping.Store(true)
			p.fire()

			timer := p.newTimer(time.Duration(p.interval.Load()) * time.Millisecond)
			select {
			case <-timer.C:
			case ack := <-p.quit:
				timer.Stop()
				ack <- struct{}{}
				return
			}
			p.pumping.Store(false)
		} else {
			// Not running: block on either being re-enabled or
			// quit, polling Run's state at a coarse interval so we
			// don't busy-loop. A short idle timer is sufficient
			// since Run() itself fires an immediate tick when it
			// transitions the pump back on.
			idle := p.newTimer(50 * time.Millisecond)
			select {
			case <-idle.C:
			case ack := <-p.quit:
				idle.Stop()
				ack <- struct{}{}
				return
			}
		}
	}
}

// Quit requests the pump stop and blocks until it acknowledges, matching
// the blocking Quit/ack round-trip the rest of the core uses for
// termination.
func (p *Pump) Quit() {
	ack := make(chan struct{})
	p.quit <- ack
	<-ack
}
