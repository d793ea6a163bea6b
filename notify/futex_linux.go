//go:build linux

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

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

var errFutexTimeout = errors.New("notify: futex wait timed out")

// Futex op codes from the kernel ABI; x/sys/unix does not export them.
const (
	futexOpWait = 0 // FUTEX_WAIT
	futexOpWake = 1 // FUTEX_WAKE
)

// pollSlice bounds each kernel wait so a cancelled context is noticed
// even without a deadline.
const pollSlice = 100 * time.Millisecond

// FutexDoorbell signals a peer in another process through a shared
// uint32 counter word, typically one of the doorbell words in a segment
// header. Ring increments the counter and wakes futex waiters; Wait
// sleeps in the kernel until the counter moves past the value it last
// returned for.
//
// The futex ops deliberately omit FUTEX_PRIVATE_FLAG: the word lives in
// a MAP_SHARED mapping visible from two processes, and private futexes
// only match waiters within one mm.
type FutexDoorbell struct {
	word   *uint32
	seen   uint32
	closed atomic.Bool
}

// NewFutexDoorbell wraps a shared counter word. The word must be
// 4-byte aligned and live in memory mapped by both peers.
func NewFutexDoorbell(word *uint32) *FutexDoorbell {
	return &FutexDoorbell{word: word, seen: atomic.LoadUint32(word)}
}

// Ring increments the shared counter and wakes one waiter.
func (d *FutexDoorbell) Ring() error {
	if d.closed.Load() {
		return ErrDoorbellClosed
	}
	atomic.AddUint32(d.word, 1)
	return futexWake(d.word, 1)
}

// Wait blocks until the counter moves past the value seen by the
// previous Wait. Signals that arrived in the meantime return
// immediately, so wakes are never lost to the gap between a peer's
// publish and our sleep.
func (d *FutexDoorbell) Wait(ctx context.Context) error {
	for {
		if d.closed.Load() {
			return ErrDoorbellClosed
		}
		v := atomic.LoadUint32(d.word)
		if v != d.seen {
			d.seen = v
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		timeout := pollSlice
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < timeout {
				timeout = remaining
			}
		}
		if err := futexWait(d.word, v, timeout); err != nil && err != errFutexTimeout {
			return err
		}
	}
}

// Close wakes any waiter and fails further operations.
func (d *FutexDoorbell) Close() error {
	if d.closed.CompareAndSwap(false, true) {
		atomic.AddUint32(d.word, 1)
		return futexWake(d.word, 1)
	}
	return nil
}

// futexWait sleeps until the value at addr differs from val or the
// timeout elapses. The value is re-checked before entering the kernel to
// close the window where a peer increments and wakes between our
// snapshot and the syscall.
func futexWait(addr *uint32, val uint32, timeout time.Duration) error {
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	if timeout <= 0 {
		return errFutexTimeout
	}
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWait),
		uintptr(val),
		uintptr(unsafe.Pointer(&ts)),
		0, 0,
	)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR:
		return nil
	case unix.ETIMEDOUT:
		return errFutexTimeout
	default:
		return fmt.Errorf("notify: futex wait: %w", errno)
	}
}

// futexWake wakes up to n waiters on addr.
func futexWake(addr *uint32, n int) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWake),
		uintptr(n),
		0, 0, 0,
	)
	if errno != 0 {
		return fmt.Errorf("notify: futex wake: %w", errno)
	}
	return nil
}
