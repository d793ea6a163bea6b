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
	"unsafe"
)

func TestAvailableWrapAround(t *testing.T) {
	// Seed consumed cursors near the top of the 32-bit range so the
	// produced index wraps past zero mid-test.
	seeds := []Index{0, 1, math.MaxUint32 - 1, math.MaxUint32 - 7, math.MaxUint32}
	const capacity = 16

	for _, cons := range seeds {
		for produced := uint32(0); produced <= capacity; produced++ {
			prod := cons + Index(produced)
			if got := available(prod, cons); got != produced {
				t.Fatalf("available(%d, %d) = %d, want %d", prod, cons, got, produced)
			}
		}
	}
}

func TestSlotOfMasksIndex(t *testing.T) {
	const capacity = 8
	mask := uint32(capacity - 1)

	for i := uint32(0); i < 4*capacity; i++ {
		idx := Index(math.MaxUint32-2) + Index(i)
		want := uint32(idx) % capacity
		if got := slotOf(idx, mask); got != want {
			t.Fatalf("slotOf(%d) = %d, want %d", idx, got, want)
		}
	}
}

func TestLayoutRejectsBadConfig(t *testing.T) {
	if _, _, _, err := Layout(12, 32, 16); err == nil {
		t.Fatal("expected error for non-power-of-two capacity")
	}
	if _, _, _, err := Layout(0, 32, 16); err == nil {
		t.Fatal("expected error for zero capacity")
	}
	if _, _, _, err := Layout(16, 0, 16); err == nil {
		t.Fatal("expected error for zero request entry size")
	}
	if _, _, _, err := Layout(16, 32, 0); err == nil {
		t.Fatal("expected error for zero response entry size")
	}
}

func TestLayoutGeometry(t *testing.T) {
	total, reqOff, rspOff, err := Layout(64, 24, 8)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	if reqOff != PageSize {
		t.Fatalf("request array offset %d, want %d (control block gets its own page)", reqOff, PageSize)
	}
	if rspOff < reqOff+64*24 {
		t.Fatalf("response array at %d overlaps request array ending at %d", rspOff, reqOff+64*24)
	}
	if rspOff%64 != 0 {
		t.Fatalf("response array offset %d not 64-byte aligned", rspOff)
	}
	if total%PageSize != 0 {
		t.Fatalf("total size %d not page-rounded", total)
	}
	if total < rspOff+64*8 {
		t.Fatalf("total %d too small for response array ending at %d", total, rspOff+64*8)
	}
}

func TestControlBlockSize(t *testing.T) {
	var cb controlBlock
	if got := int(unsafe.Sizeof(cb)); got != ControlBlockSize {
		t.Fatalf("control block is %d bytes, want %d", got, ControlBlockSize)
	}
}
