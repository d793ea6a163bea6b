/*
 * Copyright 2026 The xenring Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package notify provides doorbell primitives for waking a ring peer.
// The ring package only decides whether a doorbell is owed; these types
// deliver it. Doorbells are edge signals and may wake spuriously: after
// every Wait the caller must re-check ring state before sleeping again.
package notify

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrDoorbellClosed is returned by Wait once the doorbell is closed.
var ErrDoorbellClosed = errors.New("notify: doorbell closed")

// Doorbell is a one-directional wake channel between two peers. Ring is
// called by the side that published work; Wait blocks the other side
// until a signal, a spurious wake, or ctx expiry.
type Doorbell interface {
	Ring() error
	Wait(ctx context.Context) error
	Close() error
}

// ChanDoorbell is an in-process doorbell built on an edge-coalesced
// buffered channel. Any number of Ring calls between two Waits collapse
// into one wake.
type ChanDoorbell struct {
	ch     chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewChanDoorbell returns a doorbell for two goroutines sharing a ring
// in one process.
func NewChanDoorbell() *ChanDoorbell {
	return &ChanDoorbell{
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Ring signals the waiting peer. It never blocks.
func (d *ChanDoorbell) Ring() error {
	if d.closed.Load() {
		return ErrDoorbellClosed
	}
	select {
	case d.ch <- struct{}{}:
	default:
	}
	return nil
}

// Wait blocks until a signal arrives, the doorbell closes, or ctx
// expires.
func (d *ChanDoorbell) Wait(ctx context.Context) error {
	select {
	case <-d.ch:
		return nil
	case <-d.done:
		return ErrDoorbellClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases any waiter.
func (d *ChanDoorbell) Close() error {
	if d.closed.CompareAndSwap(false, true) {
		close(d.done)
	}
	return nil
}
