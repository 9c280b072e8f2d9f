/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package metrics exposes the connection manager's prometheus
// collectors, served off a dedicated diagnostic HTTP listener exactly as
// ap.wifid does with its WIFID_DIAG_PORT goroutine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles every metric the connection manager updates.
type Collectors struct {
	PollCycles       prometheus.Counter
	JoinsIssued      prometheus.Counter
	Retries          prometheus.Counter
	InvalidAuth      prometheus.Counter
	InvalidAp        prometheus.Counter
	ECErrors         prometheus.Counter
	BroadcastsSent   prometheus.Counter
	BroadcastsFailed prometheus.Counter
	Subscribers      prometheus.Gauge
	CurrentState     *prometheus.GaugeVec
}

// New registers and returns the full collector set against reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		PollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wifimgrd",
			Name:      "poll_cycles_total",
			Help:      "Number of poll reconciliation cycles run.",
		}),
		JoinsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wifimgrd",
			Name:      "joins_issued_total",
			Help:      "Number of wlan_join commands issued.",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wifimgrd",
			Name:      "retries_total",
			Help:      "Number of transitions into the Retry state.",
		}),
		InvalidAuth: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wifimgrd",
			Name:      "invalid_auth_total",
			Help:      "Number of connect attempts rejected for bad credentials.",
		}),
		InvalidAp: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wifimgrd",
			Name:      "invalid_ap_total",
			Help:      "Number of connect attempts that found no matching AP.",
		}),
		ECErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wifimgrd",
			Name:      "ec_errors_total",
			Help:      "Number of transitions into the Error state.",
		}),
		BroadcastsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wifimgrd",
			Name:      "status_broadcasts_total",
			Help:      "Number of status snapshot broadcasts emitted.",
		}),
		BroadcastsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wifimgrd",
			Name:      "status_broadcast_delivery_failures_total",
			Help:      "Number of per-subscriber delivery failures during broadcast.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wifimgrd",
			Name:      "subscribers",
			Help:      "Current number of registered status subscribers.",
		}),
		CurrentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wifimgrd",
			Name:      "wifi_state",
			Help:      "1 for the currently active WifiState, 0 for all others.",
		}, []string{"state"}),
	}

	reg.MustRegister(
		c.PollCycles, c.JoinsIssued, c.Retries, c.InvalidAuth, c.InvalidAp,
		c.ECErrors, c.BroadcastsSent, c.BroadcastsFailed, c.Subscribers,
		c.CurrentState,
	)
	return c
}

// SetState zeroes every known state label and sets only cur to 1,
// matching how ap.wifid's own metrics package tracks exclusive-state
// gauges.
func (c *Collectors) SetState(all []string, cur string) {
	for _, s := range all {
		v := 0.0
		if s == cur {
			v = 1.0
		}
		c.CurrentState.WithLabelValues(s).Set(v)
	}
}
