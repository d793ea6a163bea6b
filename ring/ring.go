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

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrRingOverrun indicates the peer's published index implies more
// outstanding entries than the ring capacity. Shared memory may contain
// interleaved writes at that point, so the condition is fatal to the
// channel and is never clamped.
var ErrRingOverrun = errors.New("ring: peer index overran capacity")

// ring is the state both peer handles share: the control block view and
// the two slot arrays, pinned to a caller-provided mapped region that
// must never move or be resized.
type ring[Req, Rsp any] struct {
	cb       *controlBlock
	reqBase  unsafe.Pointer
	rspBase  unsafe.Pointer
	mem      []byte // keeps the region reachable
	capacity uint32
	mask     uint32
}

// RegionSize returns the number of bytes a ring region needs for the
// given capacity and entry sizes.
func RegionSize(capacity uint32, reqEntrySize, rspEntrySize uintptr) (uintptr, error) {
	total, _, _, err := Layout(capacity, reqEntrySize, rspEntrySize)
	return total, err
}

func attach[Req, Rsp any](mem []byte, capacity uint32) (*ring[Req, Rsp], error) {
	var req Req
	var rsp Rsp
	total, reqOff, rspOff, err := Layout(capacity, unsafe.Sizeof(req), unsafe.Sizeof(rsp))
	if err != nil {
		return nil, err
	}
	if uintptr(len(mem)) < total {
		return nil, fmt.Errorf("ring: region too small: need %d bytes, have %d", total, len(mem))
	}
	base := unsafe.Pointer(&mem[0])
	if uintptr(base)%PageSize != 0 {
		return nil, fmt.Errorf("ring: region not page-aligned (addr %#x)", uintptr(base))
	}
	return &ring[Req, Rsp]{
		cb:       (*controlBlock)(base),
		reqBase:  unsafe.Add(base, reqOff),
		rspBase:  unsafe.Add(base, rspOff),
		mem:      mem,
		capacity: capacity,
		mask:     capacity - 1,
	}, nil
}

func (r *ring[Req, Rsp]) reqSlot(idx Index) *Req {
	var e Req
	off := uintptr(slotOf(idx, r.mask)) * unsafe.Sizeof(e)
	return (*Req)(unsafe.Add(r.reqBase, off))
}

func (r *ring[Req, Rsp]) rspSlot(idx Index) *Rsp {
	var e Rsp
	off := uintptr(slotOf(idx, r.mask)) * unsafe.Sizeof(e)
	return (*Rsp)(unsafe.Add(r.rspBase, off))
}

// Front is the handle held by the peer that produces requests and
// consumes responses. It owns two private cursors that are never stored
// in shared memory: the next request index to fill and the count of
// responses consumed. A Front is not safe for concurrent use; one
// goroutine (or one mapped process) drives it.
type Front[Req, Rsp any] struct {
	r      *ring[Req, Rsp]
	ctl    frontControl
	policy NotifyPolicy

	reqProdPvt  Index // next request index to fill; published on Produce
	reqNotified Index // produced index covered by the last notify decision
	rspCons     Index // responses consumed so far
}

// AttachFront binds a front handle to a zero-initialized (or previously
// attached) shared region. The region must be page-aligned and large
// enough for the control block plus two capacity-sized entry arrays;
// capacity must be a power of two.
func AttachFront[Req, Rsp any](mem []byte, capacity uint32) (*Front[Req, Rsp], error) {
	r, err := attach[Req, Rsp](mem, capacity)
	if err != nil {
		return nil, err
	}
	return &Front[Req, Rsp]{r: r, ctl: frontControl{cb: r.cb}, policy: ThresholdPolicy{}}, nil
}

// SetNotifyPolicy replaces the notification gate. The default is
// ThresholdPolicy; AlwaysPolicy is the conservative fallback.
func (f *Front[Req, Rsp]) SetNotifyPolicy(p NotifyPolicy) { f.policy = p }

// Capacity returns the number of slots per direction.
func (f *Front[Req, Rsp]) Capacity() uint32 { return f.r.capacity }

// Room returns how many requests may be produced right now. A request
// slot is free once its response has been consumed, so room is bounded
// by the responses this front has retired.
func (f *Front[Req, Rsp]) Room() uint32 {
	return f.r.capacity - uint32(f.reqProdPvt-f.rspCons)
}

// Produce copies entries into free request slots and publishes them to
// the back peer in one fenced step. It returns the number published,
// which is short when the ring lacks room. It never blocks.
func (f *Front[Req, Rsp]) Produce(entries []Req) int {
	n := 0
	for i := range entries {
		if uint32(f.reqProdPvt-f.rspCons) >= f.r.capacity {
			break
		}
		*f.r.reqSlot(f.reqProdPvt) = entries[i]
		f.reqProdPvt++
		n++
	}
	if n > 0 {
		f.ctl.publishRequests(f.reqProdPvt)
	}
	return n
}

// NotifyIfNeeded reports whether the back peer is owed a doorbell for
// requests published since the previous call. The caller raises the
// actual signal. The threshold read happens after the publish, so a
// stale threshold can only add a spurious doorbell.
func (f *Front[Req, Rsp]) NotifyIfNeeded() bool {
	oldProd, newProd := f.reqNotified, f.reqProdPvt
	f.reqNotified = newProd
	return f.policy.ShouldNotify(oldProd, newProd, f.ctl.requestEvent())
}

// ConsumeAvailable copies newly visible responses into dst and advances
// the private consumption cursor. It returns 0 when nothing new is
// visible (a spurious doorbell is just an empty result) and
// ErrRingOverrun if the back's published index implies more outstanding
// responses than the ring can hold.
func (f *Front[Req, Rsp]) ConsumeAvailable(dst []Rsp) (int, error) {
	prod := f.ctl.responsesProduced()
	avail := available(prod, f.rspCons)
	if avail > f.r.capacity {
		return 0, ErrRingOverrun
	}
	n := int(avail)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = *f.r.rspSlot(f.rspCons)
		f.rspCons++
	}
	return n, nil
}

// UpdateEventThreshold tells the back peer to ring the doorbell when it
// publishes the next response, then re-checks for responses that raced
// in before the threshold store became visible. It returns true when
// more responses are already consumable, in which case the caller must
// consume again instead of sleeping.
func (f *Front[Req, Rsp]) UpdateEventThreshold() bool {
	f.ctl.publishResponseEvent(f.rspCons + 1)
	return available(f.ctl.responsesProduced(), f.rspCons) > 0
}

// Quiescent reports whether every produced request has been responded to
// and every response consumed. A teardown protocol layered above the
// ring polls this on both peers before unmapping the region.
func (f *Front[Req, Rsp]) Quiescent() bool {
	return f.reqProdPvt == f.rspCons
}

// Back is the handle held by the peer that consumes requests and
// produces responses, symmetric to Front.
type Back[Req, Rsp any] struct {
	r      *ring[Req, Rsp]
	ctl    backControl
	policy NotifyPolicy

	reqCons     Index // requests consumed so far
	rspProdPvt  Index // next response index to fill; published on Produce
	rspNotified Index // produced index covered by the last notify decision
}

// AttachBack binds a back handle to a shared region; see AttachFront for
// the region contract.
func AttachBack[Req, Rsp any](mem []byte, capacity uint32) (*Back[Req, Rsp], error) {
	r, err := attach[Req, Rsp](mem, capacity)
	if err != nil {
		return nil, err
	}
	return &Back[Req, Rsp]{r: r, ctl: backControl{cb: r.cb}, policy: ThresholdPolicy{}}, nil
}

// SetNotifyPolicy replaces the notification gate.
func (b *Back[Req, Rsp]) SetNotifyPolicy(p NotifyPolicy) { b.policy = p }

// Capacity returns the number of slots per direction.
func (b *Back[Req, Rsp]) Capacity() uint32 { return b.r.capacity }

// ConsumeAvailable copies newly visible requests into dst and advances
// the private consumption cursor. Returns ErrRingOverrun if the front's
// published index overran the capacity invariant.
func (b *Back[Req, Rsp]) ConsumeAvailable(dst []Req) (int, error) {
	prod := b.ctl.requestsProduced()
	avail := available(prod, b.reqCons)
	if avail > b.r.capacity {
		return 0, ErrRingOverrun
	}
	n := int(avail)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = *b.r.reqSlot(b.reqCons)
		b.reqCons++
	}
	return n, nil
}

// Room returns how many responses may be produced right now: one per
// consumed request not yet responded to. Responding only to consumed
// requests is what keeps response slot reuse inside the capacity bound.
func (b *Back[Req, Rsp]) Room() uint32 {
	return uint32(b.reqCons - b.rspProdPvt)
}

// Produce copies entries into free response slots and publishes them to
// the front peer in one fenced step, returning the number published.
func (b *Back[Req, Rsp]) Produce(entries []Rsp) int {
	n := 0
	for i := range entries {
		if b.rspProdPvt == b.reqCons {
			break
		}
		*b.r.rspSlot(b.rspProdPvt) = entries[i]
		b.rspProdPvt++
		n++
	}
	if n > 0 {
		b.ctl.publishResponses(b.rspProdPvt)
	}
	return n
}

// NotifyIfNeeded reports whether the front peer is owed a doorbell for
// responses published since the previous call.
func (b *Back[Req, Rsp]) NotifyIfNeeded() bool {
	oldProd, newProd := b.rspNotified, b.rspProdPvt
	b.rspNotified = newProd
	return b.policy.ShouldNotify(oldProd, newProd, b.ctl.responseEvent())
}

// UpdateEventThreshold publishes the request-direction threshold and
// re-checks for requests that raced in; true means consume again before
// sleeping.
func (b *Back[Req, Rsp]) UpdateEventThreshold() bool {
	b.ctl.publishRequestEvent(b.reqCons + 1)
	return available(b.ctl.requestsProduced(), b.reqCons) > 0
}

// Quiescent reports whether every visible request has been consumed and
// responded to.
func (b *Back[Req, Rsp]) Quiescent() bool {
	return b.ctl.requestsProduced() == b.reqCons && b.rspProdPvt == b.reqCons
}
