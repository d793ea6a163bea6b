//go:build linux || darwin

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

package shm

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
	"unsafe"

	"xenring/ring"
)

type segReq struct {
	ID    uint64
	Bytes [24]byte
}

type segRsp struct {
	ID     uint64
	Status uint32
	_      uint32
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, os.Getpid(), time.Now().UnixNano())
}

func TestCreateOpenAndValidate(t *testing.T) {
	name := uniqueName("test-create")
	seg, err := CreateSegment(name, 16, unsafe.Sizeof(segReq{}), unsafe.Sizeof(segRsp{}))
	if err != nil {
		t.Fatalf("CreateSegment failed: %v", err)
	}
	defer func() {
		seg.Close()
		Remove(name)
	}()

	hdr := seg.Header()
	if hdr.Capacity() != 16 {
		t.Fatalf("capacity %d, want 16", hdr.Capacity())
	}
	reqSize, rspSize := hdr.EntrySizes()
	if uintptr(reqSize) != unsafe.Sizeof(segReq{}) || uintptr(rspSize) != unsafe.Sizeof(segRsp{}) {
		t.Fatalf("entry sizes %d/%d do not match types", reqSize, rspSize)
	}
	if !hdr.CreatorReady() {
		t.Fatal("creator ready flag not set")
	}
	if hdr.OpenerReady() {
		t.Fatal("opener ready flag set before open")
	}

	if !Exists(name) {
		t.Fatal("Exists returned false for a live segment")
	}

	peer, err := OpenSegment(name)
	if err != nil {
		t.Fatalf("OpenSegment failed: %v", err)
	}
	defer peer.Close()

	if !peer.Header().OpenerReady() {
		t.Fatal("opener ready flag not set after open")
	}
	if !hdr.OpenerReady() {
		t.Fatal("opener ready flag not visible through the creator mapping")
	}
}

// TestCrossMappingExchange pushes an entry through two independent
// mappings of the same segment file, which is exactly the cross-process
// situation minus the second process.
func TestCrossMappingExchange(t *testing.T) {
	name := uniqueName("test-xmap")
	creator, err := CreateSegment(name, 8, unsafe.Sizeof(segReq{}), unsafe.Sizeof(segRsp{}))
	if err != nil {
		t.Fatalf("CreateSegment failed: %v", err)
	}
	defer func() {
		creator.Close()
		Remove(name)
	}()

	opener, err := OpenSegment(name)
	if err != nil {
		t.Fatalf("OpenSegment failed: %v", err)
	}
	defer opener.Close()

	// Creator is the back (device) side, opener the front.
	back, err := ring.AttachBack[segReq, segRsp](creator.RingRegion(), 8)
	if err != nil {
		t.Fatalf("AttachBack failed: %v", err)
	}
	front, err := ring.AttachFront[segReq, segRsp](opener.RingRegion(), 8)
	if err != nil {
		t.Fatalf("AttachFront failed: %v", err)
	}

	req := segReq{ID: 42}
	copy(req.Bytes[:], "cross-mapping probe")
	if n := front.Produce([]segReq{req}); n != 1 {
		t.Fatalf("Produce published %d, want 1", n)
	}

	got := make([]segReq, 1)
	n, err := back.ConsumeAvailable(got)
	if err != nil || n != 1 {
		t.Fatalf("back consume: n=%d err=%v", n, err)
	}
	if got[0] != req {
		t.Fatalf("request did not survive the mapping boundary: %+v", got[0])
	}

	back.Produce([]segRsp{{ID: 42, Status: 1}})
	rsp := make([]segRsp, 1)
	n, err = front.ConsumeAvailable(rsp)
	if err != nil || n != 1 || rsp[0].ID != 42 {
		t.Fatalf("front consume: n=%d err=%v rsp=%+v", n, err, rsp[0])
	}
}

func TestOpenRejectsCorruptHeader(t *testing.T) {
	name := uniqueName("test-corrupt")
	seg, err := CreateSegment(name, 8, 32, 16)
	if err != nil {
		t.Fatalf("CreateSegment failed: %v", err)
	}
	path := seg.Path
	seg.Close()
	defer Remove(name)

	// Flip a magic byte on disk.
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, err := f.WriteAt([]byte{'x'}, 0); err != nil {
		t.Fatalf("corrupt write failed: %v", err)
	}
	f.Close()

	if _, err := OpenSegment(name); err == nil {
		t.Fatal("OpenSegment accepted a corrupt header")
	}
}

func TestCreateRejectsBadGeometry(t *testing.T) {
	if _, err := CreateSegment(uniqueName("test-badcap"), 12, 32, 16); err == nil {
		t.Fatal("expected error for non-power-of-two capacity")
	}
	if _, err := CreateSegment(uniqueName("test-zerosize"), 16, 0, 16); err == nil {
		t.Fatal("expected error for zero entry size")
	}
}

func TestCreateRefusesExisting(t *testing.T) {
	name := uniqueName("test-excl")
	seg, err := CreateSegment(name, 8, 32, 16)
	if err != nil {
		t.Fatalf("CreateSegment failed: %v", err)
	}
	defer func() {
		seg.Close()
		Remove(name)
	}()

	if _, err := CreateSegment(name, 8, 32, 16); err == nil {
		t.Fatal("second create of the same name succeeded")
	}
}

func TestWaitPeerReady(t *testing.T) {
	name := uniqueName("test-wait")
	seg, err := CreateSegment(name, 8, 32, 16)
	if err != nil {
		t.Fatalf("CreateSegment failed: %v", err)
	}
	defer func() {
		seg.Close()
		Remove(name)
	}()

	// No peer yet: the wait must time out.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	if err := seg.WaitPeerReady(ctx); err != context.DeadlineExceeded {
		cancel()
		t.Fatalf("WaitPeerReady without a peer: got %v, want deadline exceeded", err)
	}
	cancel()

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- seg.WaitPeerReady(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	peer, err := OpenSegment(name)
	if err != nil {
		t.Fatalf("OpenSegment failed: %v", err)
	}
	defer peer.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitPeerReady failed after peer opened: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitPeerReady did not observe the peer")
	}
}

func TestRemove(t *testing.T) {
	name := uniqueName("test-remove")
	seg, err := CreateSegment(name, 8, 32, 16)
	if err != nil {
		t.Fatalf("CreateSegment failed: %v", err)
	}
	seg.Close()

	if err := Remove(name); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if Exists(name) {
		t.Fatal("segment still exists after Remove")
	}
	if err := Remove(name); err != os.ErrNotExist {
		t.Fatalf("second Remove: got %v, want ErrNotExist", err)
	}
}
