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

package entity

import (
	"context"

	"github.com/uap-core/uap/message"
	"github.com/uap-core/uap/transport"
)

// RemoteEntity proxies a Handle over a pluggable Transport. It carries no
// local queue or handler chain of its own: delivery semantics belong to
// whatever process is actually addressed.
type RemoteEntity struct {
	*record
	t transport.Transport
}

// NewRemoteEntity wraps a transport as a registry-visible entity.
func NewRemoteEntity(id string, kind Kind, caps []string, meta map[string]any, pub []byte, t transport.Transport) *RemoteEntity {
	return &RemoteEntity{
		record: newRecord(id, kind, caps, meta, pub),
		t:      t,
	}
}

func (e *RemoteEntity) Deliver(ctx context.Context, msg *message.Message) (*message.Message, error) {
	return e.t.Send(ctx, msg)
}

// Close is a no-op: the transport's lifecycle is owned by its creator.
func (e *RemoteEntity) Close() error { return nil }
