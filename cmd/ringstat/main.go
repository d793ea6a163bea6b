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

// ringstat inspects a live xenring segment: header geometry, the four
// shared indices, and a stall diagnosis.
package main

import (
	"flag"
	"fmt"
	"os"

	"xenring/internal/logging"
	"xenring/ring"
	"xenring/shm"
)

func main() {
	var (
		name    = flag.String("name", "", "segment name (required)")
		create  = flag.Bool("create", false, "create the segment instead of opening it")
		slots   = flag.Uint("capacity", 64, "slots per direction when creating (power of two)")
		reqSize = flag.Uint("req-size", 64, "request entry size in bytes when creating")
		rspSize = flag.Uint("rsp-size", 16, "response entry size in bytes when creating")
		remove  = flag.Bool("remove", false, "remove the segment file and exit")
	)
	flag.Parse()

	log := logging.Default()
	if *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	if *remove {
		if err := shm.Remove(*name); err != nil {
			log.WithError(err).Fatal("remove failed")
		}
		fmt.Printf("removed segment %q\n", *name)
		return
	}

	var (
		seg *shm.Segment
		err error
	)
	if *create {
		seg, err = shm.CreateSegment(*name, uint32(*slots), uintptr(*reqSize), uintptr(*rspSize))
	} else {
		seg, err = shm.OpenSegment(*name)
	}
	if err != nil {
		log.WithError(err).Fatal("segment unavailable")
	}
	defer seg.Close()

	hdr := seg.Header()
	req, rsp := hdr.EntrySizes()
	fmt.Printf("segment   %s (%s)\n", seg.Name, seg.Path)
	fmt.Printf("capacity  %d slots/direction\n", hdr.Capacity())
	fmt.Printf("entries   req=%dB rsp=%dB\n", req, rsp)
	fmt.Printf("peers     creator_ready=%v opener_ready=%v closed=%v\n",
		hdr.CreatorReady(), hdr.OpenerReady(), hdr.Closed())

	st, err := ring.ReadState(seg.RingRegion())
	if err != nil {
		log.WithError(err).Fatal("cannot read ring state")
	}
	fmt.Printf("indices   %s\n", st)

	diagnose(st, hdr.Capacity())
}

// diagnose flags the stall patterns worth a second look: a full ring
// with the back's threshold armed means the back is asleep while the
// front cannot produce, and index distances beyond capacity mean the
// protocol invariant is already broken.
func diagnose(st ring.State, capacity uint32) {
	inFlight := st.Unresponded()
	switch {
	case inFlight > capacity:
		fmt.Printf("status    OVERRUN: %d requests in flight exceeds capacity %d; channel is corrupt\n",
			inFlight, capacity)
	case inFlight == capacity:
		fmt.Printf("status    ring full: front is stalled until the back responds\n")
	case inFlight == 0:
		fmt.Printf("status    idle\n")
	default:
		fmt.Printf("status    %d requests in flight\n", inFlight)
	}
}
