/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package selector implements the SSID candidate-selection algorithm
// (C1): a pure function choosing the next AP to attempt from the visible,
// known, and already-attempted sets.
package selector

// Select picks the next SSID to attempt, mutating attempted in place
// exactly as the original does (insert on pick, clear on pool exhaustion)
// so callers share one attempted set across calls within a pass.
//
// Algorithm:
//  1. pool := visible ∩ known
//  2. fresh := pool \ attempted
//  3. if fresh is non-empty, pick any element, record it as attempted,
//     and return it.
//  4. else if pool is non-empty, clear attempted, pick any element of
//     pool, record it, and return it.
//  5. else return ("", false).
//
// Tie-breaks among equally-eligible candidates are intentionally
// unspecified; Go's map iteration order already supplies the "arbitrary
// but stable within a single range" behavior the spec calls for.
func Select(visible, attempted, known map[string]struct{}) (string, bool) {
	pool := intersect(visible, known)
	if len(pool) == 0 {
		return "", false
	}

	if fresh := difference(pool, attempted); len(fresh) > 0 {
		for ssid := range fresh {
			attempted[ssid] = struct{}{}
			return ssid, true
		}
	}

	// Pool exhausted: every visible-and-known SSID has been attempted
	// this pass. Reseed so selection is cyclic rather than starving.
	for k := range attempted {
		delete(attempted, k)
	}
	for ssid := range pool {
		attempted[ssid] = struct{}{}
		return ssid, true
	}
	return "", false
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for k := range small {
		if _, ok := large[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func difference(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}
