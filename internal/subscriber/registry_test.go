/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package subscriber

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wifimgrd/internal/ports"
)

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	l, err := zap.NewDevelopment()
	require.NoError(t, err)
	return l.Sugar()
}

func TestSubscribeCapacityExceeded(t *testing.T) {
	r := New(1, testLogger(t))

	_, err := r.Subscribe(Subscription{Deliver: func(ports.StatusSnapshot) error { return nil }})
	require.NoError(t, err)

	_, err = r.Subscribe(Subscription{Deliver: func(ports.StatusSnapshot) error { return nil }})
	assert.ErrorIs(t, err, ports.ErrCapacityExceeded)
	assert.Equal(t, 1, r.Len())
}

func TestBroadcastDeliversToAllAndSurvivesOneFailure(t *testing.T) {
	r := New(DefaultCapacity, testLogger(t))

	var gotA, gotB int
	_, err := r.Subscribe(Subscription{Deliver: func(ports.StatusSnapshot) error {
		gotA++
		return errors.New("transient send failure")
	}})
	require.NoError(t, err)

	_, err = r.Subscribe(Subscription{Deliver: func(ports.StatusSnapshot) error {
		gotB++
		return nil
	}})
	require.NoError(t, err)

	r.Broadcast(ports.DefaultSnapshot())

	assert.Equal(t, 1, gotA, "failing subscriber should still receive the broadcast")
	assert.Equal(t, 1, gotB)
	assert.Equal(t, 2, r.Len(), "a delivery failure must not revoke the subscriber")
}

func TestUnsubscribeWireIDRemovesMatchingHandle(t *testing.T) {
	r := New(DefaultCapacity, testLogger(t))

	h, err := r.Subscribe(Subscription{Deliver: func(ports.StatusSnapshot) error { return nil }})
	require.NoError(t, err)

	r.UnsubscribeWireID(h.WireID())
	assert.Equal(t, 0, r.Len())
}

func TestUnsubscribeUnknownHandleIsNoop(t *testing.T) {
	r := New(DefaultCapacity, testLogger(t))
	r.Unsubscribe(Handle{})
	assert.Equal(t, 0, r.Len())
}
