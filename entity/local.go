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
	"errors"
	"fmt"
	"sync"

	"github.com/uap-core/uap/internal/logger"
	"github.com/uap-core/uap/message"
)

// DefaultQueueSize is the bounded receive-queue depth (§5).
const DefaultQueueSize = 1024

// ErrBackpressure is returned when an entity's receive queue is full.
var ErrBackpressure = errors.New("entity: receive queue full")

// ErrClosed is returned by Deliver after the entity has been closed.
var ErrClosed = errors.New("entity: closed")

// HandlerFunc processes one message and optionally produces a response.
// A nil response means "no opinion" and lets the chain continue.
type HandlerFunc func(ctx context.Context, msg *message.Message) (*message.Message, error)

type deliverJob struct {
	ctx    context.Context
	msg    *message.Message
	respCh chan deliverResult
}

type deliverResult struct {
	resp *message.Message
	err  error
}

type handlerEntry struct {
	id int
	fn HandlerFunc
}

// LocalEntity is an in-process entity: it owns a bounded receive queue
// drained by a single goroutine (serial handler invocation per §5) and an
// ordered chain of registered handlers.
type LocalEntity struct {
	*record

	log logger.Logger

	mu       sync.Mutex
	handlers []handlerEntry
	nextID   int

	queue     chan deliverJob
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLocalEntity creates a LocalEntity and starts its processing loop.
func NewLocalEntity(id string, kind Kind, caps []string, meta map[string]any, pub []byte, queueSize int) *LocalEntity {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	e := &LocalEntity{
		record: newRecord(id, kind, caps, meta, pub),
		log:    logger.GetDefaultLogger().WithFields(logger.String("component", "entity"), logger.String("entity_id", id)),
		queue:  make(chan deliverJob, queueSize),
		done:   make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

// AddHandler appends a handler to the chain and returns a token that
// RemoveHandler accepts.
func (e *LocalEntity) AddHandler(fn HandlerFunc) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, handlerEntry{id: id, fn: fn})
	return id
}

// RemoveHandler removes a previously registered handler by its token.
func (e *LocalEntity) RemoveHandler(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, h := range e.handlers {
		if h.id == id {
			e.handlers = append(e.handlers[:i], e.handlers[i+1:]...)
			return
		}
	}
}

func (e *LocalEntity) snapshotHandlers() []handlerEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]handlerEntry, len(e.handlers))
	copy(out, e.handlers)
	return out
}

// Deliver enqueues msg and blocks (respecting ctx) for the handler chain's
// result. A full queue fails fast with ErrBackpressure rather than
// blocking, per the resource model in §5.
func (e *LocalEntity) Deliver(ctx context.Context, msg *message.Message) (*message.Message, error) {
	job := deliverJob{ctx: ctx, msg: msg, respCh: make(chan deliverResult, 1)}
	select {
	case <-e.done:
		return nil, ErrClosed
	default:
	}
	select {
	case e.queue <- job:
	default:
		return nil, ErrBackpressure
	}
	select {
	case res := <-job.respCh:
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		return nil, ErrClosed
	}
}

func (e *LocalEntity) run() {
	defer e.wg.Done()
	for {
		select {
		case job := <-e.queue:
			resp, err := e.invoke(job.ctx, job.msg)
			job.respCh <- deliverResult{resp: resp, err: err}
		case <-e.done:
			return
		}
	}
}

// invoke runs the handler chain in registration order. The first handler
// that returns a non-nil response terminates the chain. A handler that
// panics is isolated: it never takes the entity down (§5 failure
// isolation), it is logged and treated as a no-response handler.
func (e *LocalEntity) invoke(ctx context.Context, msg *message.Message) (resp *message.Message, err error) {
	for _, h := range e.snapshotHandlers() {
		resp, err = e.callSafely(ctx, h.fn, msg)
		if err != nil {
			return nil, fmt.Errorf("handler failure: %w", err)
		}
		if resp != nil {
			return resp, nil
		}
	}
	return nil, nil
}

func (e *LocalEntity) callSafely(ctx context.Context, fn HandlerFunc, msg *message.Message) (resp *message.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("handler panicked", logger.Any("recover", r), logger.String("intent", msg.Intent))
			resp, err = nil, nil
		}
	}()
	return fn(ctx, msg)
}

// Close stops the processing loop. In-flight handler invocations are
// allowed to finish; it does not interrupt invoke mid-flight.
func (e *LocalEntity) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
	})
	e.wg.Wait()
	return nil
}
