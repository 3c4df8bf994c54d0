// Copyright 2026 The JazzPetri Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Receiver consumes notifications. Kinds lists the accepted kinds; an empty
// list accepts every kind. A returned error aborts the simulation.
type Receiver interface {
	Kinds() []Kind
	Receive(info Info) error
}

// HandlerFunc is a function receiver.
type HandlerFunc func(info Info) error

type funcReceiver struct {
	kinds []Kind
	fn    HandlerFunc
}

func (f *funcReceiver) Kinds() []Kind           { return f.kinds }
func (f *funcReceiver) Receive(info Info) error { return f.fn(info) }

type subscription struct {
	id       string
	receiver Receiver
	accepts  map[Kind]bool // nil accepts all
}

func (s *subscription) wants(k Kind) bool {
	return s.accepts == nil || s.accepts[k]
}

// Bus delivers notifications to subscribed receivers. Safe for concurrent
// use; deliveries are serialized so a receiver never runs concurrently with
// itself or another receiver of the same bus.
type Bus struct {
	mu      sync.RWMutex
	deliver sync.Mutex
	subs    []*subscription
	closed  bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers r and returns its subscription id. Receivers are
// called in subscription order.
func (b *Bus) Subscribe(r Receiver) (string, error) {
	if r == nil {
		return "", fmt.Errorf("event: receiver cannot be nil")
	}
	sub := &subscription{id: uuid.New().String(), receiver: r}
	if kinds := r.Kinds(); len(kinds) > 0 {
		sub.accepts = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			sub.accepts[k] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", fmt.Errorf("event: bus is closed")
	}
	b.subs = append(b.subs, sub)
	return sub.id, nil
}

// SubscribeFunc registers fn for the given kinds (all kinds when none).
func (b *Bus) SubscribeFunc(fn HandlerFunc, kinds ...Kind) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("event: handler cannot be nil")
	}
	return b.Subscribe(&funcReceiver{kinds: kinds, fn: fn})
}

// Unsubscribe removes a subscription by id.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("event: subscription %q not found", id)
}

// Wants reports whether any receiver accepts kind k. Publishers use it to
// skip building notifications nobody reads.
func (b *Bus) Wants(k Kind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.wants(k) {
			return true
		}
	}
	return false
}

// Publish delivers info to every accepting receiver and returns their
// errors joined. Every receiver is called even when an earlier one fails.
func (b *Bus) Publish(info Info) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("event: bus is closed")
	}
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(info.Kind) {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()

	b.deliver.Lock()
	defer b.deliver.Unlock()
	var errs []error
	for _, s := range subs {
		if err := safeReceive(s.receiver, info); err != nil {
			errs = append(errs, fmt.Errorf("receiver %s: %w", s.id, err))
		}
	}
	return errors.Join(errs...)
}

// Close rejects further publications and subscriptions.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("event: bus already closed")
	}
	b.closed = true
	return nil
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func safeReceive(r Receiver, info Info) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("receiver panicked: %v", p)
		}
	}()
	return r.Receive(info)
}
