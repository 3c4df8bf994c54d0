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
)

// Async decouples a slow receiver from the simulation. Notifications are
// queued on a buffered channel and handed to the wrapped receiver by one
// goroutine, in order. Receive blocks when the buffer is full; nothing is
// dropped.
//
// Errors from the wrapped receiver cannot abort the run; they are collected
// and returned by Close.
type Async struct {
	inner Receiver
	ch    chan Info
	wg    sync.WaitGroup

	// send guards the channel against a concurrent Close.
	send   sync.RWMutex
	closed bool

	mu   sync.Mutex
	errs []error
}

// NewAsync starts the delivery goroutine for r. A buffer below 1 is raised
// to 1.
func NewAsync(r Receiver, buffer int) *Async {
	if buffer < 1 {
		buffer = 1
	}
	a := &Async{inner: r, ch: make(chan Info, buffer)}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer a.wg.Done()
	for info := range a.ch {
		if err := safeReceive(a.inner, info); err != nil {
			a.mu.Lock()
			a.errs = append(a.errs, err)
			a.mu.Unlock()
		}
	}
}

// Kinds returns the wrapped receiver's kinds.
func (a *Async) Kinds() []Kind {
	return a.inner.Kinds()
}

// Receive queues info for delivery.
func (a *Async) Receive(info Info) error {
	a.send.RLock()
	defer a.send.RUnlock()
	if a.closed {
		return fmt.Errorf("event: async receiver closed")
	}
	a.ch <- info
	return nil
}

// Close waits until every queued notification is delivered and returns the
// wrapped receiver's errors joined.
func (a *Async) Close() error {
	a.send.Lock()
	if a.closed {
		a.send.Unlock()
		return fmt.Errorf("event: async receiver already closed")
	}
	a.closed = true
	close(a.ch)
	a.send.Unlock()

	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	return errors.Join(a.errs...)
}
