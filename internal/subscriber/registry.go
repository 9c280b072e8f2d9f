/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package subscriber implements the status subscriber registry (C2): a
// capacity-bounded set of listeners that receive StatusSnapshot
// broadcasts. It is owned by, and shares a goroutine with, the connection
// manager — it is a plain struct, not an actor, matching the single-writer
// discipline the rest of the core observes.
package subscriber

import (
	"go.uber.org/zap"

	"github.com/satori/uuid"

	"wifimgrd/internal/ports"
)

// DefaultCapacity is the typical subscriber ceiling the spec calls for.
const DefaultCapacity = 32

// Handle identifies one subscription. Unlike the original's raw channel
// ID, this is a generated UUID (mirroring bg/ap_common/platform's use of
// satori/uuid for identifiers); WireID renders it back to the four-word
// wire form the UnsubWifiStats operation code uses.
type Handle uuid.UUID

// WireID returns the [4]uint32 wire-level identifier for this handle,
// matching the UnsubWifiStats{sid: [u32;4]} operation code in spec.md §6.
func (h Handle) WireID() [4]uint32 {
	var out [4]uint32
	b := uuid.UUID(h)
	for i := 0; i < 4; i++ {
		out[i] = uint32(b[i*4])<<24 | uint32(b[i*4+1])<<16 | uint32(b[i*4+2])<<8 | uint32(b[i*4+3])
	}
	return out
}

// Subscription is the descriptor passed to Subscribe: a delivery function
// invoked with each broadcast snapshot. A real transport (channel, RPC
// callback, websocket push) wraps its send in this shape.
type Subscription struct {
	Deliver func(ports.StatusSnapshot) error
}

// Registry tracks the current subscriber set and fans out broadcasts.
type Registry struct {
	capacity  int
	subs      map[Handle]Subscription
	log       *zap.SugaredLogger
	onFailure func()
}

// New builds a registry with the given capacity ceiling.
func New(capacity int, log *zap.SugaredLogger) *Registry {
	return &Registry{
		capacity: capacity,
		subs:     make(map[Handle]Subscription),
		log:      log,
	}
}

// SetFailureHook installs a callback invoked once per failed delivery
// during Broadcast, letting the owner track delivery failures (e.g. as a
// metric) without this package depending on the metrics package.
func (r *Registry) SetFailureHook(hook func()) {
	r.onFailure = hook
}

// Subscribe registers desc and returns its handle, or ErrCapacityExceeded
// if the registry is already at its ceiling.
func (r *Registry) Subscribe(desc Subscription) (Handle, error) {
	if len(r.subs) >= r.capacity {
		return Handle{}, ports.ErrCapacityExceeded
	}
	id, err := uuid.NewV4()
	if err != nil {
		return Handle{}, err
	}
	h := Handle(id)
	r.subs[h] = desc
	return h, nil
}

// Unsubscribe removes the subscription for h, if any. It is a no-op (not
// an error) if h is not currently registered, matching the original's
// "couldn't find it, nothing to do" tolerance.
func (r *Registry) Unsubscribe(h Handle) {
	delete(r.subs, h)
}

// UnsubscribeWireID removes the subscription whose wire-level identifier
// matches sid, mirroring UnsubWifiStats's [4]u32 lookup. The caller (C4)
// is responsible for acknowledging the unsubscribe request *before*
// calling this, so the acknowledgement can never race the teardown —
// this is the "ack precedes teardown" ordering spec.md's Open Question
// (a) settles.
func (r *Registry) UnsubscribeWireID(sid [4]uint32) {
	for h := range r.subs {
		if h.WireID() == sid {
			delete(r.subs, h)
			return
		}
	}
}

// Len reports the current subscriber count.
func (r *Registry) Len() int {
	return len(r.subs)
}

// Broadcast delivers snapshot to every current subscriber exactly once.
// A delivery failure to one subscriber is logged and does not abort the
// broadcast or revoke that subscriber — a transient delivery error is not
// the same thing as an unsubscribe.
func (r *Registry) Broadcast(snapshot ports.StatusSnapshot) {
	for h, sub := range r.subs {
		if err := sub.Deliver(snapshot); err != nil {
			r.log.Warnw("status delivery failed", "subscriber", uuid.UUID(h).String(), "error", err)
			if r.onFailure != nil {
				r.onFailure()
			}
		}
	}
}
