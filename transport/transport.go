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

// Package transport abstracts the wire between a RemoteEntity proxy and the
// process that actually owns the entity. The core never depends on a
// specific transport; "local" (in-process, same registry) is the only
// transport the core itself requires, per §9's treatment of registry_url.
package transport

import (
	"context"

	"github.com/uap-core/uap/message"
)

// Transport delivers a message to whatever is on the other end and
// returns its response, if any.
type Transport interface {
	Send(ctx context.Context, msg *message.Message) (*message.Message, error)
}

// Func adapts a plain function to Transport.
type Func func(ctx context.Context, msg *message.Message) (*message.Message, error)

func (f Func) Send(ctx context.Context, msg *message.Message) (*message.Message, error) {
	return f(ctx, msg)
}
