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

// Package local is the default Transport: a direct in-process hand-off to
// a Router, with no network hop. Every RemoteEntity in a single-process
// deployment (e.g. tests) is backed by one of these.
package local

import (
	"context"

	"github.com/uap-core/uap/message"
	"github.com/uap-core/uap/router"
)

// Transport routes directly through an in-process Router.
type Transport struct {
	rtr *router.Router
}

// New wraps rtr as a local Transport.
func New(rtr *router.Router) *Transport {
	return &Transport{rtr: rtr}
}

// Send hands msg straight to the Router's Route pipeline.
func (t *Transport) Send(ctx context.Context, msg *message.Message) (*message.Message, error) {
	return t.rtr.Route(ctx, msg)
}
