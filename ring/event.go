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

// EventPending reports whether a publish that moved a produced index
// from oldProd to newProd crossed the consumer's event threshold, i.e.
// whether the consumer asked to be woken for some index in
// (oldProd, newProd]. All arithmetic wraps, so the predicate is exact
// for any window no wider than the ring capacity.
//
// The comparison is the classic threshold test: event lies inside the
// half-open published range exactly when newProd-event < newProd-oldProd.
func EventPending(oldProd, newProd, event Index) bool {
	return uint32(newProd-event) < uint32(newProd-oldProd)
}

// NotifyPolicy decides whether a publish owes the peer a doorbell.
// Implementations may return true spuriously; returning false when
// EventPending holds would deadlock the peer.
type NotifyPolicy interface {
	ShouldNotify(oldProd, newProd, event Index) bool
}

// ThresholdPolicy is the default gate: notify exactly when the publish
// crossed the peer's event threshold.
type ThresholdPolicy struct{}

func (ThresholdPolicy) ShouldNotify(oldProd, newProd, event Index) bool {
	return EventPending(oldProd, newProd, event)
}

// AlwaysPolicy notifies on every publish that moved the index. It trades
// doorbell traffic for simplicity and is useful when debugging a
// suspected lost-notification stall.
type AlwaysPolicy struct{}

func (AlwaysPolicy) ShouldNotify(oldProd, newProd, _ Index) bool {
	return newProd != oldProd
}
