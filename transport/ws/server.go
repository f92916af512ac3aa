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

package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uap-core/uap/internal/logger"
	"github.com/uap-core/uap/message"
	"github.com/uap-core/uap/router"
)

// Server upgrades HTTP connections to WebSocket and routes every incoming
// Message through a Router, writing its response (if any) back over the
// same connection under the request's message ID, which is what Client
// matches responses by. Grounded on the teacher's
// pkg/agent/transport/websocket server (one upgrader, one goroutine per
// connection, a tracked connection set for shutdown).
type Server struct {
	rtr          *router.Router
	upgrader     websocket.Upgrader
	readTimeout  time.Duration
	writeTimeout time.Duration

	connMu      sync.Mutex
	connections map[*websocket.Conn]struct{}

	log logger.Logger
}

// NewServer creates a Server dispatching every received Message through rtr.
func NewServer(rtr *router.Router) *Server {
	return &Server{
		rtr: rtr,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		readTimeout:  60 * time.Second,
		writeTimeout: 30 * time.Second,
		connections:  make(map[*websocket.Conn]struct{}),
		log:          logger.GetDefaultLogger().WithFields(logger.String("component", "transport.ws")),
	}
}

// Handler returns an http.Handler that upgrades each request to a
// WebSocket and serves it until the peer disconnects.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("websocket upgrade failed", logger.Any("error", err))
			return
		}
		s.track(conn)
		defer s.untrack(conn)
		s.serve(r.Context(), conn)
	})
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn) {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return
		}
		var msg message.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		resp, err := s.rtr.Route(ctx, &msg)
		if err != nil {
			s.log.Warn("route failed", logger.String("message_id", msg.ID), logger.Any("error", err))
			continue
		}
		if resp == nil {
			continue
		}
		if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return
		}
		reply := *resp
		reply.ID = msg.ID
		if err := conn.WriteJSON(&reply); err != nil {
			return
		}
	}
}

func (s *Server) track(conn *websocket.Conn) {
	s.connMu.Lock()
	s.connections[conn] = struct{}{}
	s.connMu.Unlock()
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()
	_ = conn.Close()
}

// Shutdown closes every currently tracked connection.
func (s *Server) Shutdown() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.connections = make(map[*websocket.Conn]struct{})
}
