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

// Package registry is the entity directory named C7 in spec.md §4.6: an
// in-memory register/lookup/liveness service generalized from the
// teacher's on-chain agent registry client to a directory with no chain
// dependency — spec.md's Entity data model carries no chain fields.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/uap-core/uap/entity"
)

// ErrNotFound is returned when an entity ID is not registered.
var ErrNotFound = errors.New("registry: entity not found")

// ErrAlreadyRegistered is returned by Register when the ID is in use.
var ErrAlreadyRegistered = errors.New("registry: entity already registered")

// defaultHeartbeatInterval is used when the caller does not set one via
// WithHeartbeatInterval; the sweeper multiplies it by staleFactor.
const (
	defaultHeartbeatInterval = 30 * time.Second
	staleFactor              = 3
)

// Directory is the in-memory entity registry. Injectable process-wide
// state (§9), not an ambient singleton.
type Directory struct {
	mu       sync.RWMutex
	entities map[string]entity.Handle

	heartbeatInterval time.Duration

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Option configures a Directory at construction time.
type Option func(*Directory)

// WithHeartbeatInterval sets the interval entities are expected to call
// Heartbeat at; the stale sweeper evicts entities silent for 3x this
// interval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(r *Directory) { r.heartbeatInterval = d }
}

// NewDirectory creates an empty registry.
func NewDirectory(opts ...Option) *Directory {
	r := &Directory{
		entities:          make(map[string]entity.Handle),
		heartbeatInterval: defaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds e to the directory under its own ID.
func (r *Directory) Register(e entity.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entities[e.ID()]; exists {
		return ErrAlreadyRegistered
	}
	r.entities[e.ID()] = e
	return nil
}

// Unregister removes and closes the entity identified by id, if present.
func (r *Directory) Unregister(id string) error {
	r.mu.Lock()
	e, ok := r.entities[id]
	if ok {
		delete(r.entities, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return e.Close()
}

// Lookup returns the entity registered under id.
func (r *Directory) Lookup(id string) (entity.Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// FindByCapability returns every registered entity advertising cap.
func (r *Directory) FindByCapability(cap string) []entity.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.Handle
	for _, e := range r.entities {
		if e.HasCapability(cap) {
			out = append(out, e)
		}
	}
	return out
}

// FindByType returns every registered entity of the given kind.
func (r *Directory) FindByType(kind entity.Kind) []entity.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.Handle
	for _, e := range r.entities {
		if e.Type() == kind {
			out = append(out, e)
		}
	}
	return out
}

// All returns every registered entity, for broadcast fan-out (§4.6).
func (r *Directory) All() []entity.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Handle, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	return out
}

// Heartbeat records liveness for id.
func (r *Directory) Heartbeat(id string) error {
	e, err := r.Lookup(id)
	if err != nil {
		return err
	}
	e.Touch(time.Now())
	return nil
}

// Start launches the background stale-entity sweeper: every
// heartbeatInterval it evicts entities whose last heartbeat is older
// than 3x that interval. Grounded on pkg/agent/handshake/server.go's
// errgroup-managed background loop.
func (r *Directory) Start(ctx context.Context) {
	gctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(gctx)
	r.cancel = cancel
	r.group = group

	group.Go(func() error {
		ticker := time.NewTicker(r.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				r.sweepStale()
			}
		}
	})
}

func (r *Directory) sweepStale() {
	threshold := r.heartbeatInterval * staleFactor
	now := time.Now()

	r.mu.Lock()
	var stale []entity.Handle
	for id, e := range r.entities {
		if now.Sub(e.LastHeartbeat()) > threshold {
			stale = append(stale, e)
			delete(r.entities, id)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		_ = e.Close()
	}
}

// Stop halts the sweeper and waits for it to exit.
func (r *Directory) Stop() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	return r.group.Wait()
}
