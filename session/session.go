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

// Package session is the client-facing façade named C9 in spec.md §4.7:
// Connect/Disconnect/Send/RegisterCapabilities/FindEntities/Heartbeat over
// a LocalEntity, the Registry, and the Router. Adapted from the teacher's
// session package, which modeled handshake-derived crypto sessions
// (session/manager.go's per-ID registry + idle sweep); this package keeps
// neither the registry nor the sweep, one Session serving one entity, and
// drops everything specific to a signed-request handshake protocol, since
// key agreement and authentication are owned by C1-C3 here.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/uap-core/uap/entity"
	"github.com/uap-core/uap/internal/logger"
	"github.com/uap-core/uap/internal/metrics"
	"github.com/uap-core/uap/message"
	"github.com/uap-core/uap/registry"
	"github.com/uap-core/uap/router"
	"github.com/uap-core/uap/token"
)

// State is a position in the session lifecycle (§4.7).
type State int

const (
	StateInit State = iota
	StateConnected
	StateDisconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Kind identifies one of §7's error categories, letting callers classify
// a session error by Kind() rather than matching on message text.
type Kind string

const (
	KindNotConnected         Kind = "NotConnected"
	KindShutdown             Kind = "Shutdown"
	KindAuthenticationFailed Kind = "AuthenticationFailed"
)

// kindError pairs a plain error with a stable Kind, grounded on the
// teacher's ErrKeyNotFound/ErrInvalidSignature sentinel style but adding
// the Kind() classifier SPEC_FULL.md's error-handling section commits to.
type kindError struct {
	kind Kind
	error
}

// Kind reports the error's §7 taxonomy category.
func (e *kindError) Kind() string { return string(e.kind) }

// Unwrap lets errors.Is/errors.As see through to the plain error.
func (e *kindError) Unwrap() error { return e.error }

func newKindError(kind Kind, msg string) *kindError {
	return &kindError{kind: kind, error: errors.New(msg)}
}

var (
	// ErrNotConnected is returned by any operation other than Connect
	// attempted while the session is still in StateInit (§4.7).
	ErrNotConnected = newKindError(KindNotConnected, "session: not connected")
	// ErrShutdown is returned by operations attempted once the session has
	// entered StateDisconnecting or StateClosed (§4.7).
	ErrShutdown = newKindError(KindShutdown, "session: shutting down")
	// ErrAuthenticationFailed is returned by Connect when a configured
	// Authenticator rejects the presented bearer token (§7, scenario E4).
	ErrAuthenticationFailed = newKindError(KindAuthenticationFailed, "session: authentication failed")

	// ErrWrongState covers state violations §7 does not name a specific
	// kind for, such as calling Connect on an already-connected session.
	ErrWrongState  = errors.New("session: operation invalid in current state")
	ErrNoHandlerID = errors.New("session: unknown handler token")
)

// ErrorKind returns the Kind of err if it wraps one of this package's
// kinded sentinels, or "" if it doesn't.
func ErrorKind(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.Kind()
	}
	return ""
}

// Session is the per-entity client handle. One Session corresponds to one
// Entity for the lifetime of a connection.
type Session struct {
	mu    sync.Mutex
	state State

	entityID string
	kind     entity.Kind
	queueSize int

	local *entity.LocalEntity
	dir   *registry.Directory
	rtr   *router.Router

	authenticator *token.Service

	log logger.Logger
}

// New creates a Session in StateInit. Connect must be called before Send
// or RegisterMessageHandler.
func New(entityID string, kind entity.Kind, dir *registry.Directory, rtr *router.Router, queueSize int) *Session {
	return &Session{
		state:     StateInit,
		entityID:  entityID,
		kind:      kind,
		queueSize: queueSize,
		dir:       dir,
		rtr:       rtr,
		log: logger.GetDefaultLogger().WithFields(
			logger.String("component", "session"),
			logger.String("entity_id", entityID)),
	}
}

// SetAuthenticator wires a bearer-token service that Connect consults
// before admitting the session (§7, scenario E4). The default, a nil
// authenticator, performs no credential check.
func (s *Session) SetAuthenticator(svc *token.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticator = svc
}

// Connect allocates the session's receive queue (a LocalEntity, which
// already owns the single-goroutine drain loop per §5) and registers it
// with the Registry. If an Authenticator is configured (SetAuthenticator),
// bearerToken must validate to this session's entity ID or Connect fails
// with ErrAuthenticationFailed and the entity is never registered.
func (s *Session) Connect(caps []string, meta map[string]any, publicKey []byte, bearerToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInit {
		return fmt.Errorf("%w: Connect requires init, got %s", ErrWrongState, s.state)
	}

	if s.authenticator != nil {
		entityID, err := s.authenticator.Validate(bearerToken)
		if err != nil || entityID != s.entityID {
			metrics.SessionsCreated.WithLabelValues("failure").Inc()
			if err == nil {
				err = fmt.Errorf("token issued to %q, not %q", entityID, s.entityID)
			}
			return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		}
	}

	s.local = entity.NewLocalEntity(s.entityID, s.kind, caps, meta, publicKey, s.queueSize)
	if err := s.dir.Register(s.local); err != nil {
		s.local.Close()
		s.local = nil
		metrics.SessionsCreated.WithLabelValues("failure").Inc()
		return err
	}

	s.state = StateConnected
	metrics.SessionsCreated.WithLabelValues("success").Inc()
	metrics.SessionsActive.Inc()
	return nil
}

// Disconnect cancels the processing loop and drains it; in-flight handler
// invocations are allowed to complete before Disconnect returns (§4.7).
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state != StateConnected {
		err := s.requireConnectedLocked("Disconnect")
		s.mu.Unlock()
		return err
	}
	s.state = StateDisconnecting
	s.mu.Unlock()

	// Unregister closes the underlying LocalEntity too: it stops the
	// receive-queue goroutine after in-flight handler calls finish.
	err := s.dir.Unregister(s.entityID)

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()

	metrics.SessionsActive.Dec()
	metrics.SessionsClosed.Inc()
	return err
}

// RegisterMessageHandler appends fn to the entity's handler chain and
// returns a token UnregisterMessageHandler accepts.
func (s *Session) RegisterMessageHandler(fn entity.HandlerFunc) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return 0, s.requireConnectedLocked("RegisterMessageHandler")
	}
	return s.local.AddHandler(fn), nil
}

// UnregisterMessageHandler removes a previously registered handler.
func (s *Session) UnregisterMessageHandler(handlerToken int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return s.requireConnectedLocked("UnregisterMessageHandler")
	}
	s.local.RemoveHandler(handlerToken)
	return nil
}

// Send builds a Message from this session's entity to recipient and
// routes it through the core pipeline, returning the terminating
// response, if any.
func (s *Session) Send(ctx context.Context, recipient, intent string, payload message.Payload, contextID string) (*message.Message, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateConnected {
		return nil, s.requireConnectedErr("Send", state)
	}

	msg := message.New(s.entityID, recipient, intent, payload, contextID)
	metrics.SessionMessageSize.WithLabelValues("outbound").Observe(float64(approxSize(payload)))
	return s.rtr.Route(ctx, msg)
}

// RegisterCapabilities merges additional capabilities and metadata into
// the entity's directory record.
func (s *Session) RegisterCapabilities(caps []string, meta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return s.requireConnectedLocked("RegisterCapabilities")
	}
	s.local.AddCapabilities(caps)
	s.local.MergeMetadata(meta)
	return nil
}

// FindEntities searches the registry by kind and/or capability. A nil
// kind matches every type; an empty caps list matches every entity.
func (s *Session) FindEntities(kind *entity.Kind, caps []string) []entity.Handle {
	var candidates []entity.Handle
	if kind != nil {
		candidates = s.dir.FindByType(*kind)
	} else {
		candidates = s.dir.All()
	}
	if len(caps) == 0 {
		return candidates
	}

	var out []entity.Handle
	for _, e := range candidates {
		if hasAllCapabilities(e, caps) {
			out = append(out, e)
		}
	}
	return out
}

func hasAllCapabilities(e entity.Handle, caps []string) bool {
	for _, c := range caps {
		if !e.HasCapability(c) {
			return false
		}
	}
	return true
}

// Heartbeat records liveness with the registry.
func (s *Session) Heartbeat() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateConnected {
		return s.requireConnectedErr("Heartbeat", state)
	}
	return s.dir.Heartbeat(s.entityID)
}

// State reports the session's current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID reports the entity ID this session was created for.
func (s *Session) ID() string {
	return s.entityID
}

// requireConnectedLocked reports the §7 kind for op given s.state, assuming
// s.mu is already held. StateInit means the caller never connected
// (NotConnected); StateDisconnecting/StateClosed mean the session is
// tearing down (Shutdown).
func (s *Session) requireConnectedLocked(op string) error {
	return s.requireConnectedErr(op, s.state)
}

func (s *Session) requireConnectedErr(op string, state State) error {
	if state == StateInit {
		return fmt.Errorf("%w: %s requires connected", ErrNotConnected, op)
	}
	return fmt.Errorf("%w: %s requires connected, got %s", ErrShutdown, op, state)
}

func approxSize(payload message.Payload) int {
	switch v := payload.(type) {
	case string:
		return len(v)
	case []byte:
		return len(v)
	default:
		return 0
	}
}
