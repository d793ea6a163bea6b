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

// Package shm provides the shared memory backing for a ring: a mapped,
// page-aligned, zero-initialized segment file with a validated header.
// The segment is created once and never moves or resizes; teardown is
// unmapping after the peers have drained the ring.
package shm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
	"unsafe"

	"xenring/ring"
)

// unmapMemory is set by the platform-specific mapping implementation.
var unmapMemory func([]byte) error

// Segment layout constants.
const (
	// Magic identifies a mapped file as a xenring segment.
	Magic = "XENRING\x00"

	// Version is the current segment format version.
	Version = uint32(1)

	// HeaderSize is the size of the segment header struct. The header
	// page is padded to ring.PageSize so the ring region that follows
	// is page-aligned.
	HeaderSize = 128
)

// SegmentHeader sits at offset 0 of the mapped file. Geometry fields
// are written once by the creator before the opener can map the file;
// the ready/closed flags and doorbell words are mutated by both peers
// and use atomic access.
type SegmentHeader struct {
	magic     [8]byte // 0x00: "XENRING\0"
	version   uint32  // 0x08
	flags     uint32  // 0x0C: reserved
	totalSize uint64  // 0x10: mapped file size
	ringOff   uint64  // 0x18: page-aligned offset of the ring region
	capacity  uint32  // 0x20: slots per direction (power of two)
	reqSize   uint32  // 0x24: request entry size in bytes
	rspSize   uint32  // 0x28: response entry size in bytes
	_         uint32  // 0x2C

	creatorPID   uint32 // 0x30
	openerPID    uint32 // 0x34
	creatorReady uint32 // 0x38
	openerReady  uint32 // 0x3C
	closed       uint32 // 0x40

	reqBell uint32 // 0x44: doorbell word, front signals back
	rspBell uint32 // 0x48: doorbell word, back signals front
	_       uint32 // 0x4C

	_ [48]byte // 0x50-0x7F: reserved to HeaderSize
}

// Capacity returns the per-direction slot count.
func (h *SegmentHeader) Capacity() uint32 { return h.capacity }

// EntrySizes returns the request and response entry sizes.
func (h *SegmentHeader) EntrySizes() (req, rsp uint32) { return h.reqSize, h.rspSize }

// CreatorReady reports whether the creating peer finished initialization.
func (h *SegmentHeader) CreatorReady() bool { return atomic.LoadUint32(&h.creatorReady) != 0 }

// OpenerReady reports whether the opening peer has mapped the segment.
func (h *SegmentHeader) OpenerReady() bool { return atomic.LoadUint32(&h.openerReady) != 0 }

// Closed reports whether either peer marked the segment closed.
func (h *SegmentHeader) Closed() bool { return atomic.LoadUint32(&h.closed) != 0 }

// SetClosed marks the segment closed. Both peers may call it.
func (h *SegmentHeader) SetClosed() { atomic.StoreUint32(&h.closed, 1) }

func (h *SegmentHeader) setCreatorReady() { atomic.StoreUint32(&h.creatorReady, 1) }
func (h *SegmentHeader) setOpenerReady()  { atomic.StoreUint32(&h.openerReady, 1) }

// Validate checks the header against the expected format and a
// recomputed layout. It runs on every open: the creator is a separate,
// mutually distrusted process.
func (h *SegmentHeader) Validate(fileSize int64) error {
	if string(h.magic[:]) != Magic {
		return fmt.Errorf("shm: bad magic %q", h.magic)
	}
	if h.version != Version {
		return fmt.Errorf("shm: unsupported version %d, expected %d", h.version, Version)
	}
	total, ringOff, err := layout(h.capacity, uintptr(h.reqSize), uintptr(h.rspSize))
	if err != nil {
		return fmt.Errorf("shm: invalid geometry: %w", err)
	}
	if h.ringOff != uint64(ringOff) {
		return fmt.Errorf("shm: ring offset mismatch: header %d, computed %d", h.ringOff, ringOff)
	}
	if h.totalSize != uint64(total) {
		return fmt.Errorf("shm: total size mismatch: header %d, computed %d", h.totalSize, total)
	}
	if fileSize < int64(total) {
		return fmt.Errorf("shm: file truncated: %d bytes, need %d", fileSize, total)
	}
	return nil
}

// layout places the ring region on the page after the header page.
func layout(capacity uint32, reqSize, rspSize uintptr) (total, ringOff uintptr, err error) {
	regionSize, err := ring.RegionSize(capacity, reqSize, rspSize)
	if err != nil {
		return 0, 0, err
	}
	ringOff = ring.PageSize
	return ringOff + regionSize, ringOff, nil
}

// Role distinguishes the peer that created the segment from the peer
// that opened it.
type Role int

const (
	Creator Role = iota
	Opener
)

// Segment is one peer's mapping of a shared ring segment. The mapping
// is pinned for the segment's lifetime; RingRegion hands the ring
// packages a sub-slice that never moves.
type Segment struct {
	File *os.File
	Mem  []byte
	Path string
	Name string
	Role Role

	hdr *SegmentHeader
}

// Header returns the typed header view.
func (s *Segment) Header() *SegmentHeader { return s.hdr }

// RingRegion returns the page-aligned byte region to hand to
// ring.AttachFront or ring.AttachBack. By convention the creator is the
// back (device) peer and the opener the front.
func (s *Segment) RingRegion() []byte {
	off := s.hdr.ringOff
	return s.Mem[off:s.hdr.totalSize]
}

// ReqBellWord returns the front-to-back doorbell word for use with a
// notify doorbell.
func (s *Segment) ReqBellWord() *uint32 { return &s.hdr.reqBell }

// RspBellWord returns the back-to-front doorbell word.
func (s *Segment) RspBellWord() *uint32 { return &s.hdr.rspBell }

// WaitPeerReady polls until the other peer has mapped the segment and
// set its ready flag, the segment is closed, or ctx expires.
func (s *Segment) WaitPeerReady(ctx context.Context) error {
	peerReady := s.hdr.OpenerReady
	if s.Role == Opener {
		peerReady = s.hdr.CreatorReady
	}
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		if peerReady() {
			return nil
		}
		if s.hdr.Closed() {
			return fmt.Errorf("shm: segment %s closed while waiting for peer", s.Name)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// Close unmaps the region and closes the file. The file itself is left
// in place for the peer; use Remove once both sides are done.
func (s *Segment) Close() error {
	var firstErr error
	if s.Mem != nil {
		if err := unmapMemory(s.Mem); err != nil && firstErr == nil {
			firstErr = err
		}
		s.Mem = nil
		s.hdr = nil
	}
	if s.File != nil {
		if err := s.File.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.File = nil
	}
	return firstErr
}

// headerView casts the start of a mapping to the header type.
func headerView(mem []byte) *SegmentHeader {
	return (*SegmentHeader)(unsafe.Pointer(&mem[0]))
}

// segmentPath places segment files in /dev/shm when present, otherwise
// the temporary directory.
func segmentPath(name string) string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return filepath.Join("/dev/shm", "xenring_"+name)
	}
	return filepath.Join(os.TempDir(), "xenring_"+name)
}

// Remove deletes a segment file.
func Remove(name string) error {
	err := os.Remove(segmentPath(name))
	if err != nil && os.IsNotExist(err) {
		return os.ErrNotExist
	}
	return err
}

// Exists reports whether a segment file is present.
func Exists(name string) bool {
	_, err := os.Stat(segmentPath(name))
	return err == nil
}
