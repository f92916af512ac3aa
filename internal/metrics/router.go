// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RouterDispatchDuration tracks the full Route pipeline's latency.
	RouterDispatchDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "dispatch_duration_seconds",
			Help:      "Route pipeline duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
		[]string{"intent"},
	)

	// RouterRejected tracks messages rejected at each pipeline stage.
	RouterRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "rejected_total",
			Help:      "Total number of messages rejected by the router, by stage",
		},
		[]string{"stage"}, // validate, authorize, decrypt, dispatch
	)

	// RouterBroadcastFanout tracks per-entity broadcast delivery outcomes.
	RouterBroadcastFanout = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "broadcast_fanout_total",
			Help:      "Total number of broadcast deliveries attempted, by outcome",
		},
		[]string{"outcome"}, // delivered, failed
	)
)
