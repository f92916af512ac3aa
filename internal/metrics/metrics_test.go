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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsAreRegistered(t *testing.T) {
	if CryptoOperations == nil || CryptoErrors == nil || CryptoOperationDuration == nil {
		t.Fatal("crypto metrics not registered")
	}
	if MessagesProcessed == nil || MessageProcessingDuration == nil || MessageSize == nil {
		t.Fatal("message metrics not registered")
	}
	if SessionsCreated == nil || SessionsActive == nil || SessionsExpired == nil ||
		SessionsClosed == nil || SessionDuration == nil || SessionMessageSize == nil {
		t.Fatal("session metrics not registered")
	}
	if RouterDispatchDuration == nil || RouterRejected == nil || RouterBroadcastFanout == nil {
		t.Fatal("router metrics not registered")
	}
}

func TestCryptoMetricsIncrement(t *testing.T) {
	CryptoOperations.WithLabelValues("sign", "ecdsa-p384").Inc()
	CryptoOperations.WithLabelValues("encrypt", "aes-256-gcm").Inc()
	CryptoOperationDuration.WithLabelValues("derive", "hkdf-sha384").Observe(0.001)
	CryptoErrors.WithLabelValues("verify").Inc()

	if count := testutil.CollectAndCount(CryptoOperations); count == 0 {
		t.Error("CryptoOperations has no series collected")
	}
}

func TestMessageMetricsIncrement(t *testing.T) {
	MessagesProcessed.WithLabelValues("request", "success").Inc()
	MessageProcessingDuration.Observe(0.01)
	MessageSize.Observe(256)

	if count := testutil.CollectAndCount(MessagesProcessed); count == 0 {
		t.Error("MessagesProcessed has no series collected")
	}
}

func TestSessionMetricsIncrement(t *testing.T) {
	SessionsCreated.WithLabelValues("success").Inc()
	SessionsActive.Inc()
	SessionDuration.WithLabelValues("create").Observe(0.01)
	SessionMessageSize.WithLabelValues("outbound").Observe(128)

	if count := testutil.CollectAndCount(SessionsCreated); count == 0 {
		t.Error("SessionsCreated has no series collected")
	}
}

func TestRouterMetricsIncrement(t *testing.T) {
	RouterDispatchDuration.WithLabelValues("request").Observe(0.001)
	RouterRejected.WithLabelValues("authorize").Inc()
	RouterBroadcastFanout.WithLabelValues("delivered").Inc()

	if count := testutil.CollectAndCount(RouterRejected); count == 0 {
		t.Error("RouterRejected has no series collected")
	}
}
