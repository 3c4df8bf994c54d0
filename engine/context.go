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

package engine

import (
	"fmt"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/context"
)

// Context is handed to one event callback. It is owned by that callback
// and must not be retained or shared with other goroutines.
//
// Scheduled events and deferred functions are buffered. Once every event of
// the batch has run, deferred functions run sequentially in batch order and
// then buffered events are queued in the same order, so the outcome does not
// depend on how the batch was executed.
type Context struct {
	exec  *context.ExecutionContext
	event *Event
	now   clock.Time

	out      []*Event
	deferred []Handler
	err      error
}

func newContext(exec *context.ExecutionContext, e *Event) *Context {
	return &Context{exec: exec, event: e, now: e.At}
}

// Now returns the timestamp of the event being dispatched.
func (c *Context) Now() clock.Time {
	return c.now
}

// Event returns the event being dispatched.
func (c *Context) Event() *Event {
	return c.event
}

// Exec returns the run's execution context.
func (c *Context) Exec() *context.ExecutionContext {
	return c.exec
}

// Schedule buffers e for insertion after the batch. Events at the current
// timestamp are dispatched in the same pass.
func (c *Context) Schedule(e *Event) error {
	if e == nil || e.Fn == nil {
		return ErrNoHandler
	}
	if e.At < c.now {
		return fmt.Errorf("%w: %s before %s", ErrPastEvent, e.At, c.now)
	}
	c.out = append(c.out, e)
	return nil
}

// Defer registers fn to run after every event of the batch completed.
// Deferred functions run sequentially in batch order and may schedule
// events.
func (c *Context) Defer(fn Handler) {
	c.deferred = append(c.deferred, fn)
}

// dispatch runs the event callback, converting a panic into an error.
func (c *Context) dispatch() {
	c.err = c.call(c.event.Fn)
}

func (c *Context) runDeferred() error {
	for len(c.deferred) > 0 {
		fn := c.deferred[0]
		c.deferred = c.deferred[1:]
		if err := c.call(fn); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) call(fn Handler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(c)
}

func (c *Context) fail() *EventError {
	return &EventError{Timestamp: c.now, Source: c.event.Source, Err: c.err}
}
