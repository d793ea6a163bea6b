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
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"xenring/internal/logging"
)

func init() {
	unmapMemory = munmap
}

// CreateSegment creates, sizes, maps, and initializes a new segment
// file. The mapping is zero-initialized by the kernel, which is what
// zeroes the ring control block and doorbell words.
func CreateSegment(name string, capacity uint32, reqEntrySize, rspEntrySize uintptr) (*Segment, error) {
	total, ringOff, err := layout(capacity, reqEntrySize, rspEntrySize)
	if err != nil {
		return nil, err
	}

	path := segmentPath(name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", path, err)
	}
	cleanup := func() {
		file.Close()
		os.Remove(path)
	}

	if err := file.Truncate(int64(total)); err != nil {
		cleanup()
		return nil, fmt.Errorf("shm: truncate %s to %d: %w", path, total, err)
	}

	mem, err := mmap(file, int(total))
	if err != nil {
		cleanup()
		return nil, err
	}

	hdr := headerView(mem)
	copy(hdr.magic[:], Magic)
	hdr.version = Version
	hdr.totalSize = uint64(total)
	hdr.ringOff = uint64(ringOff)
	hdr.capacity = capacity
	hdr.reqSize = uint32(reqEntrySize)
	hdr.rspSize = uint32(rspEntrySize)
	hdr.creatorPID = uint32(os.Getpid())
	hdr.setCreatorReady()

	logging.WithSegment(name).WithField("bytes", total).Debug("segment created")

	return &Segment{
		File: file,
		Mem:  mem,
		Path: path,
		Name: name,
		Role: Creator,
		hdr:  hdr,
	}, nil
}

// OpenSegment maps an existing segment created by the peer and
// validates its header before trusting any of its geometry.
func OpenSegment(name string) (*Segment, error) {
	path := segmentPath(name)
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}
	if info.Size() < HeaderSize {
		file.Close()
		return nil, fmt.Errorf("shm: segment %s too small: %d bytes", path, info.Size())
	}

	mem, err := mmap(file, int(info.Size()))
	if err != nil {
		file.Close()
		return nil, err
	}

	hdr := headerView(mem)
	if err := hdr.Validate(info.Size()); err != nil {
		munmap(mem)
		file.Close()
		return nil, err
	}

	hdr.openerPID = uint32(os.Getpid())
	hdr.setOpenerReady()

	logging.WithSegment(name).WithField("bytes", info.Size()).Debug("segment opened")

	return &Segment{
		File: file,
		Mem:  mem,
		Path: path,
		Name: name,
		Role: Opener,
		hdr:  hdr,
	}, nil
}

func mmap(file *os.File, size int) ([]byte, error) {
	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap failed: %w", err)
	}
	return mem, nil
}

func munmap(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("shm: munmap failed: %w", err)
	}
	return nil
}
