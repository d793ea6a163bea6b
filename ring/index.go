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

package ring

import "fmt"

// Index is a monotonically increasing 32-bit entry counter. It is never
// reset and wraps modulo 2^32; all distance calculations use wrapping
// unsigned subtraction, which stays exact while the outstanding entry
// count is at most the ring capacity.
type Index uint32

// PageSize is the required alignment and granularity of the shared
// region backing a ring.
const PageSize = 4096

// ControlBlockSize is the size of the shared index block at the start of
// the region. The four indices occupy 16 bytes; the rest is padding so
// index traffic never shares a cache line with entry storage.
const ControlBlockSize = 64

// slotOf maps a monotonic index to a slot position. mask is capacity-1;
// capacity being a power of two is checked at attach time.
func slotOf(idx Index, mask uint32) uint32 {
	return uint32(idx) & mask
}

// available returns the number of entries produced but not yet consumed.
// Valid for any two indices at most one capacity apart; wraparound of the
// 32-bit counters is expected and handled by the unsigned subtraction.
func available(prod, cons Index) uint32 {
	return uint32(prod - cons)
}

// isPowerOfTwo reports whether n is a nonzero power of two.
func isPowerOfTwo(n uint32) bool {
	return n > 0 && n&(n-1) == 0
}

// Layout computes the byte layout of a ring region: a control block
// padded to one page, the request entry array, then the response entry
// array, each 64-byte aligned, with the total rounded up to whole pages.
// It fails fast on configuration faults: capacity not a power of two or
// a zero entry size.
func Layout(capacity uint32, reqEntrySize, rspEntrySize uintptr) (total, reqOff, rspOff uintptr, err error) {
	if !isPowerOfTwo(capacity) {
		return 0, 0, 0, fmt.Errorf("ring: capacity %d is not a power of two", capacity)
	}
	if reqEntrySize == 0 || rspEntrySize == 0 {
		return 0, 0, 0, fmt.Errorf("ring: entry size must be nonzero (req=%d rsp=%d)", reqEntrySize, rspEntrySize)
	}
	reqOff = PageSize
	rspOff = alignTo64(reqOff + uintptr(capacity)*reqEntrySize)
	total = alignToPage(rspOff + uintptr(capacity)*rspEntrySize)
	return total, reqOff, rspOff, nil
}

func alignTo64(n uintptr) uintptr {
	return (n + 63) &^ 63
}

func alignToPage(n uintptr) uintptr {
	return (n + PageSize - 1) &^ (PageSize - 1)
}
