/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(ssids ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(ssids))
	for _, ssid := range ssids {
		s[ssid] = struct{}{}
	}
	return s
}

func TestSelectEmptyPoolReturnsNothing(t *testing.T) {
	visible := set("coffeeshop")
	known := set("home")
	attempted := set()

	_, ok := Select(visible, attempted, known)
	assert.False(t, ok)
}

func TestSelectPicksFromIntersection(t *testing.T) {
	visible := set("home", "coffeeshop")
	known := set("home", "office")
	attempted := set()

	ssid, ok := Select(visible, attempted, known)
	require.True(t, ok)
	assert.Equal(t, "home", ssid)
	assert.Contains(t, attempted, "home")
}

// P1: cyclic coverage — every element of the intersection is eventually
// returned, and once the pool is exhausted the next call reseeds.
func TestSelectCyclicCoverage(t *testing.T) {
	visible := set("a", "b", "c")
	known := set("a", "b", "c")
	attempted := set()

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		ssid, ok := Select(visible, attempted, known)
		require.True(t, ok)
		seen[ssid] = true
	}
	assert.Len(t, seen, 3, "expected every pool member to be tried once before repeats")

	// Pool now exhausted: attempted == pool. The next call must reseed
	// and return something, not starve.
	ssid, ok := Select(visible, attempted, known)
	require.True(t, ok)
	assert.Contains(t, []string{"a", "b", "c"}, ssid)
	assert.Len(t, attempted, 1, "reseeding should clear prior attempts before recording the new pick")
}

func TestSelectDoesNotStarveOnPermanentFailure(t *testing.T) {
	// "b" is visible+known but (in the caller's world) always fails to
	// join; the selector itself has no notion of failure, only of what
	// has been attempted this pass, so it must still offer "b" again
	// once the pool is exhausted.
	visible := set("a", "b")
	known := set("a", "b")
	attempted := set("a", "b")

	ssid, ok := Select(visible, attempted, known)
	require.True(t, ok)
	assert.Contains(t, []string{"a", "b"}, ssid)
}

func TestSelectUnknownVisibleSsidIgnored(t *testing.T) {
	visible := set("rogue-ap")
	known := set("home")
	attempted := set()

	_, ok := Select(visible, attempted, known)
	assert.False(t, ok)
}
