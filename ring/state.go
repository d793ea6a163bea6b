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
	"fmt"
	"sync/atomic"
	"unsafe"
)

// State is a diagnostic snapshot of the four shared indices. The private
// cursors of either peer are not part of it; what the shared page shows
// is all a third observer can see.
type State struct {
	ReqProd  Index
	ReqEvent Index
	RspProd  Index
	RspEvent Index
}

// ReadState snapshots the control block at the start of a ring region.
// Each field is loaded atomically; the snapshot as a whole is not,
// which is fine for diagnostics.
func ReadState(mem []byte) (State, error) {
	if len(mem) < ControlBlockSize {
		return State{}, fmt.Errorf("ring: region too small for control block: %d bytes", len(mem))
	}
	cb := (*controlBlock)(unsafe.Pointer(&mem[0]))
	return State{
		ReqProd:  Index(atomic.LoadUint32(&cb.reqProd)),
		ReqEvent: Index(atomic.LoadUint32(&cb.reqEvent)),
		RspProd:  Index(atomic.LoadUint32(&cb.rspProd)),
		RspEvent: Index(atomic.LoadUint32(&cb.rspEvent)),
	}, nil
}

// Unresponded returns how many published requests have no published
// response yet. Responses never outrun requests, so this is the
// in-flight depth as seen from the shared page.
func (s State) Unresponded() uint32 {
	return available(s.ReqProd, s.RspProd)
}

func (s State) String() string {
	return fmt.Sprintf("req_prod=%d req_event=%d rsp_prod=%d rsp_event=%d in_flight=%d",
		s.ReqProd, s.ReqEvent, s.RspProd, s.RspEvent, s.Unresponded())
}
