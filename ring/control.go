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

import "sync/atomic"

// controlBlock is the shared index block at offset 0 of the region.
// Field-write ownership: the front peer stores reqProd and rspEvent, the
// back peer stores rspProd and reqEvent. Every field is accessed with
// sync/atomic so an index publish orders all prior slot writes before it
// and an index load orders all subsequent slot reads after it; the
// barrier discipline of the protocol lives entirely in these accessors
// and must never be inlined around.
type controlBlock struct {
	reqProd  uint32
	reqEvent uint32
	rspProd  uint32
	rspEvent uint32
	_        [ControlBlockSize - 16]byte
}

// frontControl is the front peer's view of the control block. It exposes
// stores only for the two fields the front owns, so writing a peer-owned
// field is a compile-time impossibility rather than a protocol review
// item.
type frontControl struct {
	cb *controlBlock
}

// publishRequests makes all request slot writes up to newProd visible to
// the back peer. The atomic store is the release point: any peer that
// observes newProd also observes the slot contents it covers.
func (c frontControl) publishRequests(newProd Index) {
	atomic.StoreUint32(&c.cb.reqProd, uint32(newProd))
}

// requestEvent loads the back peer's notification threshold. Must only
// be called after publishRequests for the range being decided; a stale
// read then causes at worst a spurious doorbell, never a missed one.
func (c frontControl) requestEvent() Index {
	return Index(atomic.LoadUint32(&c.cb.reqEvent))
}

// responsesProduced loads the back peer's response index. Slot reads at
// positions covered by the returned value are ordered after the load.
func (c frontControl) responsesProduced() Index {
	return Index(atomic.LoadUint32(&c.cb.rspProd))
}

// publishResponseEvent tells the back peer not to raise a doorbell until
// its response index passes threshold.
func (c frontControl) publishResponseEvent(threshold Index) {
	atomic.StoreUint32(&c.cb.rspEvent, uint32(threshold))
}

// backControl is the back peer's view of the control block, symmetric to
// frontControl.
type backControl struct {
	cb *controlBlock
}

func (c backControl) publishResponses(newProd Index) {
	atomic.StoreUint32(&c.cb.rspProd, uint32(newProd))
}

func (c backControl) responseEvent() Index {
	return Index(atomic.LoadUint32(&c.cb.rspEvent))
}

func (c backControl) requestsProduced() Index {
	return Index(atomic.LoadUint32(&c.cb.reqProd))
}

func (c backControl) publishRequestEvent(threshold Index) {
	atomic.StoreUint32(&c.cb.reqEvent, uint32(threshold))
}
