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

// Package contextstore is the per-conversation history described in
// spec.md §4.5 (C6): ordered messages grouped by context ID, with
// idempotent appends and idle expiry.
package contextstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/uap-core/uap/message"
)

// ErrNotFound is returned when a context ID is unknown.
var ErrNotFound = errors.New("contextstore: context not found")

// Ctx is a single conversation's ordered message history. The zero
// MaxSize means unbounded; a positive MaxSize evicts the oldest message
// once exceeded (§3).
type Ctx struct {
	ID        string
	CreatedAt int64
	MaxSize   int

	mu       sync.RWMutex
	messages []*message.Message
	seen     map[string]struct{} // message ID -> present, for idempotent AddMessage
	touched  time.Time
}

// Messages returns a snapshot of the context's ordered messages.
func (c *Ctx) Messages() []*message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*message.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Ctx) append(msg *message.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.seen[msg.ID]; dup {
		return false
	}
	c.seen[msg.ID] = struct{}{}
	c.messages = append(c.messages, msg)
	c.touched = time.Now()

	if c.MaxSize > 0 && len(c.messages) > c.MaxSize {
		evicted := c.messages[0]
		c.messages = c.messages[1:]
		delete(c.seen, evicted.ID)
	}
	return true
}

func (c *Ctx) idleSince(now time.Time) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return now.Sub(c.touched)
}

// Store is the in-memory context directory. It is injectable process-wide
// state (§9), not an ambient singleton.
type Store struct {
	mu       sync.RWMutex
	contexts map[string]*Ctx

	idleInterval time.Duration
	idleAge      time.Duration

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithIdleGC enables a background goroutine that calls ExpireIdle(age)
// every interval. Grounded on the teacher's errgroup-managed cleanup loop
// (pkg/agent/handshake/server.go's ticker-driven pending-state sweep).
func WithIdleGC(interval, age time.Duration) Option {
	return func(s *Store) {
		s.idleInterval = interval
		s.idleAge = age
	}
}

// NewStore creates an empty context store.
func NewStore(opts ...Option) *Store {
	s := &Store{contexts: make(map[string]*Ctx)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateContext allocates a fresh, empty context and returns it.
func (s *Store) CreateContext(maxSize int) *Ctx {
	c := &Ctx{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().Unix(),
		MaxSize:   maxSize,
		seen:      make(map[string]struct{}),
		touched:   time.Now(),
	}
	s.mu.Lock()
	s.contexts[c.ID] = c
	s.mu.Unlock()
	return c
}

// AddMessage appends msg to contextID's history, preserving delivery
// order. Repeated calls for the same (context, message-id) are no-ops
// (§3 invariant).
func (s *Store) AddMessage(contextID string, msg *message.Message) error {
	s.mu.RLock()
	c, ok := s.contexts[contextID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	c.append(msg)
	return nil
}

// EnsureContext returns the context named contextID, creating an unbounded
// one under that exact ID if it does not yet exist. Used by the router
// (§4.6 Record step) so a context referenced by a message is recorded even
// if the sender never called CreateContext explicitly.
func (s *Store) EnsureContext(contextID string) *Ctx {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contexts[contextID]; ok {
		return c
	}
	c := &Ctx{
		ID:        contextID,
		CreatedAt: time.Now().Unix(),
		seen:      make(map[string]struct{}),
		touched:   time.Now(),
	}
	s.contexts[contextID] = c
	return c
}

// GetContext returns the context identified by contextID.
func (s *Store) GetContext(contextID string) (*Ctx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[contextID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// ListContexts returns every known context ID.
func (s *Store) ListContexts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.contexts))
	for id := range s.contexts {
		ids = append(ids, id)
	}
	return ids
}

// ExpireIdle removes and returns the IDs of every context that has seen
// no AddMessage for at least age.
func (s *Store) ExpireIdle(age time.Duration) []string {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, c := range s.contexts {
		if c.idleSince(now) >= age {
			expired = append(expired, id)
			delete(s.contexts, id)
		}
	}
	return expired
}

// Start launches the background idle-GC loop if WithIdleGC was set, using
// an errgroup so Stop can wait for a clean shutdown.
func (s *Store) Start(ctx context.Context) {
	if s.idleInterval <= 0 {
		return
	}
	gctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(gctx)
	s.cancel = cancel
	s.group = group

	group.Go(func() error {
		ticker := time.NewTicker(s.idleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.ExpireIdle(s.idleAge)
			}
		}
	})
}

// Stop halts the idle-GC loop and waits for it to exit.
func (s *Store) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	return s.group.Wait()
}
