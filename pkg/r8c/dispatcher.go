// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package r8c

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Verdict is returned by an event handler to continue or stop the chain
type Verdict int

const (
	// Continue passes the event on to the next subscriber
	Continue Verdict = iota
	// Handled stops delivery to the remaining subscribers
	Handled
)

// EventHandler receives event codes from the MCU
type EventHandler interface {
	HandleEvent(code byte) Verdict
}

// EventHandlerFunc adapts a function to EventHandler
type EventHandlerFunc func(code byte) Verdict

// HandleEvent calls f(code)
func (f EventHandlerFunc) HandleEvent(code byte) Verdict {
	return f(code)
}

// Subscription is the handle returned by Subscribe
type Subscription struct {
	d       *Dispatcher
	id      uint64
	handler EventHandler
}

// Unsubscribe removes the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.d == nil {
		return
	}
	s.d.Unsubscribe(s)
}

// Dispatcher delivers event codes to subscribers on its own goroutine.
//
// Posting never blocks: the code lands in a single pending slot and the
// worker is woken. If several events are posted before the worker runs, only
// the newest is delivered.
//
// Handlers run in registration order while the registry is read-locked, so
// Unsubscribe waits for an in-flight delivery to finish and a handler is never
// called after its Unsubscribe has returned. Handlers may call
// Session.Execute but must not subscribe or unsubscribe from inside the
// callback.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   []*Subscription
	nextID uint64

	slotMu  sync.Mutex
	pending byte

	kick     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	posted    atomic.Uint64
	delivered atomic.Uint64

	log zerolog.Logger
}

// NewDispatcher creates a dispatcher and starts its worker
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
		log:  log,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Subscribe appends handler to the registry
func (d *Dispatcher) Subscribe(handler EventHandler) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	sub := &Subscription{d: d, id: d.nextID, handler: handler}
	d.subs = append(d.subs, sub)

	return sub
}

// Unsubscribe removes sub from the registry, waiting for any delivery in
// progress to finish first
func (d *Dispatcher) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i, s := range d.subs {
		if s.id == sub.id {
			d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered subscribers
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Post stores code in the pending slot and schedules a delivery
func (d *Dispatcher) Post(code byte) {
	d.slotMu.Lock()
	d.pending = code
	d.slotMu.Unlock()

	d.posted.Add(1)

	select {
	case d.kick <- struct{}{}:
	default:
		// a delivery is already scheduled and will pick up the new code
	}
}

// Stop terminates the worker and waits for it to exit
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}

// Posted returns the number of events handed to Post
func (d *Dispatcher) Posted() uint64 {
	return d.posted.Load()
}

// Delivered returns the number of events passed to the handler chain
func (d *Dispatcher) Delivered() uint64 {
	return d.delivered.Load()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		case <-d.kick:
			d.slotMu.Lock()
			code := d.pending
			d.slotMu.Unlock()

			d.notifyAll(code)
		}
	}
}

// notifyAll calls every handler in order until one reports Handled
func (d *Dispatcher) notifyAll(code byte) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	defer d.delivered.Add(1)

	d.log.Debug().Str("code", string(code)).Int("subscribers", len(d.subs)).Msg("dispatching event")

	for _, sub := range d.subs {
		if sub.handler.HandleEvent(code) == Handled {
			return
		}
	}
}
