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

// Package router is the dispatcher named C8 in spec.md §4.6: the five-
// stage pipeline (validate, authorize, decrypt, dispatch, record) that
// sits between a client session's Send and an entity's handler chain.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/uap-core/uap/contextstore"
	"github.com/uap-core/uap/entity"
	"github.com/uap-core/uap/internal/logger"
	"github.com/uap-core/uap/internal/metrics"
	"github.com/uap-core/uap/message"
	"github.com/uap-core/uap/policy"
	"github.com/uap-core/uap/registry"
	"github.com/uap-core/uap/securitymgr"
)

var (
	ErrPolicyDenied    = errors.New("router: policy denied")
	ErrDecryptFailed   = errors.New("router: decrypt failed")
	ErrSenderUnknown   = errors.New("router: sender not registered")
	ErrRecipientUnknown = errors.New("router: recipient not registered")
)

// Router wires the Registry, Policy Engine, Security Manager, and Context
// Store into the Route pipeline. Injectable process-wide state (§9).
type Router struct {
	directory *registry.Directory
	policy    *policy.Engine
	security  *securitymgr.Manager
	contexts  *contextstore.Store
	log       logger.Logger

	// RequireRegisteredSender enforces the "sender registered" validation
	// clause of §4.6 step 1. Off by default so unit tests can route
	// messages from senders that only exist as key-pair identities.
	RequireRegisteredSender bool

	// ordering serializes dispatch per (sender, recipient, context) so the
	// §4.6 ordering guarantee holds for concurrent Route callers.
	ordering sync.Map // orderKey -> *sync.Mutex
}

type orderKey struct {
	sender, recipient, contextID string
}

// New builds a Router over its collaborators.
func New(directory *registry.Directory, policyEngine *policy.Engine, security *securitymgr.Manager, contexts *contextstore.Store) *Router {
	return &Router{
		directory: directory,
		policy:    policyEngine,
		security:  security,
		contexts:  contexts,
		log:       logger.GetDefaultLogger().WithFields(logger.String("component", "router")),
	}
}

// Route runs the full validate/authorize/decrypt/dispatch/record pipeline
// for msg and returns the terminating handler's response, if any.
func (r *Router) Route(ctx context.Context, msg *message.Message) (*message.Message, error) {
	start := time.Now()
	status := "success"
	defer func() {
		elapsed := time.Since(start).Seconds()
		metrics.RouterDispatchDuration.WithLabelValues(msg.Intent).Observe(elapsed)
		metrics.MessageProcessingDuration.Observe(elapsed)
		metrics.MessagesProcessed.WithLabelValues(msg.Intent, status).Inc()
	}()
	if canon, err := msg.CanonicalForSigning(); err == nil {
		metrics.MessageSize.Observe(float64(len(canon)))
	}

	if err := r.validate(msg); err != nil {
		metrics.RouterRejected.WithLabelValues("validate").Inc()
		status = "failure"
		return nil, err
	}

	if !r.policy.EvaluatePolicy(msg.Sender, msg.Recipient, msg.Intent, nil) {
		metrics.RouterRejected.WithLabelValues("authorize").Inc()
		status = "failure"
		return nil, fmt.Errorf("%w: %s -> %s:%s", ErrPolicyDenied, msg.Sender, msg.Recipient, msg.Intent)
	}

	plain, err := r.decrypt(msg)
	if err != nil {
		metrics.RouterRejected.WithLabelValues("decrypt").Inc()
		status = "failure"
		return nil, err
	}

	mu := r.orderingMutex(plain)
	mu.Lock()
	defer mu.Unlock()

	resp, dispatchErr := r.dispatch(ctx, plain)
	if dispatchErr != nil {
		metrics.RouterRejected.WithLabelValues("dispatch").Inc()
		status = "failure"
	} else {
		r.record(plain, resp)
	}
	return resp, dispatchErr
}

func (r *Router) validate(msg *message.Message) error {
	if msg.Expired(time.Now()) {
		return message.ErrExpired
	}
	if r.RequireRegisteredSender {
		if _, err := r.directory.Lookup(msg.Sender); err != nil {
			return fmt.Errorf("%w: %s", ErrSenderUnknown, msg.Sender)
		}
	}
	return nil
}

func (r *Router) decrypt(msg *message.Message) (*message.Message, error) {
	if !msg.Encrypted || msg.IsBroadcast() {
		return msg, nil
	}
	out, err := r.security.DecryptMessage(msg.Recipient, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return out, nil
}

func (r *Router) dispatch(ctx context.Context, msg *message.Message) (*message.Message, error) {
	if msg.IsBroadcast() {
		r.fanOut(ctx, msg)
		return nil, nil
	}

	target, err := r.directory.Lookup(msg.Recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRecipientUnknown, msg.Recipient)
	}
	return target.Deliver(ctx, msg)
}

// fanOut delivers a broadcast message to every registered entity except
// the sender. Per-entity failures are logged, never propagated (§4.6
// step 4), and responses are discarded.
func (r *Router) fanOut(ctx context.Context, msg *message.Message) {
	var wg sync.WaitGroup
	for _, e := range r.directory.All() {
		if e.ID() == msg.Sender {
			continue
		}
		wg.Add(1)
		go func(target entity.Handle) {
			defer wg.Done()
			if _, err := target.Deliver(ctx, msg); err != nil {
				metrics.RouterBroadcastFanout.WithLabelValues("failed").Inc()
				r.log.Warn("broadcast delivery failed",
					logger.String("recipient", target.ID()),
					logger.String("message_id", msg.ID),
					logger.Any("error", err))
				return
			}
			metrics.RouterBroadcastFanout.WithLabelValues("delivered").Inc()
		}(e)
	}
	wg.Wait()
}

// record appends the delivered message, and its response if any, to the
// Context Store under msg.context_id (§4.6 step 5).
func (r *Router) record(msg, resp *message.Message) {
	if msg.ContextID == "" {
		return
	}
	c := r.contexts.EnsureContext(msg.ContextID)
	_ = r.contexts.AddMessage(c.ID, msg)
	if resp != nil {
		_ = r.contexts.AddMessage(c.ID, resp)
	}
}

func (r *Router) orderingMutex(msg *message.Message) *sync.Mutex {
	key := orderKey{sender: msg.Sender, recipient: msg.Recipient, contextID: msg.ContextID}
	v, _ := r.ordering.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}
