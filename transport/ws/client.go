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

// Package ws is an optional Transport backed by github.com/gorilla/websocket,
// demonstrating that the core's Transport interface is a real abstraction
// and not local-only. Grounded on the teacher's
// pkg/agent/transport/websocket client (persistent connection,
// message-ID-keyed pending-response map, a background reader goroutine).
package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uap-core/uap/message"
)

// Client is a Transport that multiplexes Sends over one persistent
// WebSocket connection, matching responses back to callers by message ID.
type Client struct {
	url          string
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	pendingMu sync.Mutex
	pending   map[string]chan *message.Message
}

// NewClient creates a Client targeting url (e.g. "wss://host/uap") with
// sensible default timeouts.
func NewClient(url string) *Client {
	return &Client{
		url:          url,
		dialTimeout:  30 * time.Second,
		readTimeout:  60 * time.Second,
		writeTimeout: 30 * time.Second,
		pending:      make(map[string]chan *message.Message),
	}
}

// Connect dials the remote endpoint and starts the background reader.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	dialer := &websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("ws: dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("ws: dial failed: %w", err)
	}

	c.conn = conn
	c.connected = true
	go c.readLoop()
	return nil
}

// Send implements transport.Transport: writes msg as JSON and waits for
// the response carrying the same message ID, a context cancellation, or a
// read timeout, whichever comes first.
func (c *Client) Send(ctx context.Context, msg *message.Message) (*message.Message, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	respCh := make(chan *message.Message, 1)
	c.pendingMu.Lock()
	c.pending[msg.ID] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, msg.ID)
		c.pendingMu.Unlock()
	}()

	if err := c.write(msg); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-respCh:
		return resp, nil
	case <-time.After(c.readTimeout):
		return nil, fmt.Errorf("ws: response timeout for message %s", msg.ID)
	}
}

func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if connected {
		return nil
	}
	return c.Connect(ctx)
}

func (c *Client) write(msg *message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("ws: not connected")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("ws: set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.setDisconnected()
		return fmt.Errorf("ws: write message: %w", err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer c.setDisconnected()
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return
		}

		var msg message.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[msg.ID]
		c.pendingMu.Unlock()
		if ok {
			select {
			case ch <- &msg:
			default:
			}
		}
	}
}

func (c *Client) setDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

// Close tears down the WebSocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.connected = false
	return err
}
