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

// Package adapter defines the Device Adapter contract (spec.md §6.5): the
// boundary between the core and external device plugins, which are
// themselves out of scope. An adapter registers one entity per device,
// answers command.* intents by dispatching to a registered
// CommandHandler, and publishes event.* broadcasts of its own.
//
// Adapted from the session package's Connect/Disconnect/Send shape: an
// adapter is a Session with a command dispatch table layered on top of
// its message handler, matching the way the teacher's pkg/agent/transport
// packages wrap a bare transport in a protocol-specific handler
// (e.g. a2a.A2AServerAdapter wrapping a MessageHandler).
package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/uap-core/uap/entity"
	"github.com/uap-core/uap/internal/logger"
	"github.com/uap-core/uap/message"
	"github.com/uap-core/uap/registry"
	"github.com/uap-core/uap/router"
	"github.com/uap-core/uap/session"
)

// commandIntentPrefix is the reserved intent namespace for adapter
// commands (§6.4).
const commandIntentPrefix = "command."

// eventIntentPrefix is the reserved intent namespace for adapter-emitted
// broadcasts (§6.4).
const eventIntentPrefix = "event."

var (
	// ErrUnknownCommand is returned by ExecuteCommand when no handler was
	// registered for the requested command.
	ErrUnknownCommand = errors.New("adapter: unknown command")
	// ErrAlreadyInitialized is returned by Initialize when the adapter's
	// entity ID is already registered in the directory. A second Initialize
	// on the same Adapter fails with session.ErrWrongState instead.
	ErrAlreadyInitialized = errors.New("adapter: already initialized")
	// ErrNotInitialized is returned by operations requiring Initialize to
	// have succeeded first.
	ErrNotInitialized = errors.New("adapter: not initialized")
)

// CommandHandler executes one named device command and returns its
// result payload, or an error surfaced back to the caller as an
// IntentError response.
type CommandHandler func(ctx context.Context, params message.Payload) (message.Payload, error)

// Adapter wraps a Session with the command-dispatch and event-publishing
// shape the Device Adapter contract requires. One Adapter corresponds to
// one device entity.
type Adapter struct {
	sess *session.Session

	mu       sync.RWMutex
	commands map[string]CommandHandler

	log logger.Logger
}

// New creates an Adapter for a not-yet-initialized device entity. entityID
// becomes the device's registry ID; queueSize bounds its inbound command
// queue (0 selects entity.DefaultQueueSize).
func New(entityID string, dir *registry.Directory, rtr *router.Router, queueSize int) *Adapter {
	return &Adapter{
		sess:     session.New(entityID, entity.KindDevice, dir, rtr, queueSize),
		commands: make(map[string]CommandHandler),
		log: logger.GetDefaultLogger().WithFields(
			logger.String("component", "adapter"),
			logger.String("entity_id", entityID)),
	}
}

// Initialize registers the device's entity and installs the command
// dispatch handler. caps/meta/publicKey describe the device as it appears
// in the Registry.
func (a *Adapter) Initialize(caps []string, meta map[string]any, publicKey []byte) error {
	if err := a.sess.Connect(caps, meta, publicKey, ""); err != nil {
		if errors.Is(err, registry.ErrAlreadyRegistered) {
			return fmt.Errorf("%w", ErrAlreadyInitialized)
		}
		return err
	}

	if _, err := a.sess.RegisterMessageHandler(a.handle); err != nil {
		a.sess.Disconnect()
		return err
	}
	return nil
}

// Shutdown disconnects the device's entity, draining any in-flight
// command before returning.
func (a *Adapter) Shutdown() error {
	if a.sess.State() != session.StateConnected {
		return fmt.Errorf("%w", ErrNotInitialized)
	}
	return a.sess.Disconnect()
}

// RegisterCommandHandler binds command to fn. A later command.<command>
// message delivered to this adapter's entity invokes fn and returns its
// result as the response payload.
func (a *Adapter) RegisterCommandHandler(command string, fn CommandHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commands[command] = fn
}

// EmitEvent publishes data as an event.<type> broadcast from this
// adapter's entity (§6.5).
func (a *Adapter) EmitEvent(ctx context.Context, eventType string, data message.Payload) error {
	if a.sess.State() != session.StateConnected {
		return fmt.Errorf("%w", ErrNotInitialized)
	}
	_, err := a.sess.Send(ctx, message.Broadcast, eventIntentPrefix+eventType, data, "")
	return err
}

// ExecuteCommand looks up the handler registered for command and invokes
// it with params. Exported so adapters (and their tests) can drive
// command dispatch directly, independent of message delivery.
func (a *Adapter) ExecuteCommand(ctx context.Context, command string, params message.Payload) (message.Payload, error) {
	a.mu.RLock()
	fn, ok := a.commands[command]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	return fn(ctx, params)
}

// handle is the entity.HandlerFunc installed on Initialize: it dispatches
// command.* intents through ExecuteCommand and ignores everything else,
// leaving room for later handlers in the chain (none, today).
func (a *Adapter) handle(ctx context.Context, msg *message.Message) (*message.Message, error) {
	command, ok := strings.CutPrefix(msg.Intent, commandIntentPrefix)
	if !ok {
		return nil, nil
	}

	result, err := a.ExecuteCommand(ctx, command, msg.Payload)
	if err != nil {
		a.log.Warn("command failed", logger.String("command", command), logger.Any("error", err))
		return session.CreateErrorResponse(msg, "CommandFailed", err.Error()), nil
	}
	return session.CreateResponse(msg, message.IntentAck, result), nil
}

// ID reports the underlying entity ID.
func (a *Adapter) ID() string {
	return a.sess.ID()
}
