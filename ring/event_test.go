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
	"math"
	"testing"
)

// eventInRange is the reference predicate: the consumer asked to be
// woken at index event, so a doorbell is owed exactly when event lies in
// the half-open published range (oldProd, newProd].
func eventInRange(oldProd, newProd, event Index) bool {
	for i := oldProd + 1; ; i++ {
		if i == event {
			return true
		}
		if i == newProd {
			return false
		}
	}
}

func TestEventPendingExhaustive(t *testing.T) {
	// Every (published range, threshold) combination within one capacity
	// window, at bases on both sides of the 32-bit wrap.
	const capacity = 16
	bases := []Index{0, 5, math.MaxUint32 - capacity/2, math.MaxUint32}

	for _, base := range bases {
		for span := uint32(1); span <= capacity; span++ {
			oldProd := base
			newProd := base + Index(span)
			for off := uint32(0); off < 3*capacity; off++ {
				event := base - capacity + Index(off)
				want := eventInRange(oldProd, newProd, event)
				if got := EventPending(oldProd, newProd, event); got != want {
					t.Fatalf("EventPending(old=%d, new=%d, event=%d) = %v, want %v",
						oldProd, newProd, event, got, want)
				}
			}
		}
	}
}

func TestEventPendingNoMovement(t *testing.T) {
	// An empty publish owes nothing regardless of the threshold.
	for off := uint32(0); off < 8; off++ {
		if EventPending(100, 100, Index(96+off)) {
			t.Fatalf("EventPending with old==new returned true at event=%d", 96+off)
		}
	}
}

func TestThresholdPolicyMatchesPredicate(t *testing.T) {
	p := ThresholdPolicy{}
	if p.ShouldNotify(10, 14, 12) != EventPending(10, 14, 12) {
		t.Fatal("ThresholdPolicy disagrees with EventPending")
	}
}

func TestAlwaysPolicy(t *testing.T) {
	p := AlwaysPolicy{}
	if !p.ShouldNotify(10, 11, 50) {
		t.Fatal("AlwaysPolicy suppressed a doorbell for a non-empty publish")
	}
	if p.ShouldNotify(10, 10, 50) {
		t.Fatal("AlwaysPolicy notified for an empty publish")
	}
}
