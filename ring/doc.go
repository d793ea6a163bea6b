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

// Package ring implements a lock-free shared-memory request/response ring
// for exactly two peers that share nothing but a mapped memory region.
//
// The region begins with a 64-byte control block holding four monotonic
// 32-bit indices (request-produced, request-event, response-produced,
// response-event) followed by two equal-length power-of-two arrays of
// fixed-size entries, one per direction. The front peer produces requests
// and consumes responses; the back peer consumes requests and produces
// responses. Each control block field has exactly one writer, so the
// protocol needs no locks: correctness rests on atomic publication of
// indices and on each peer keeping its outstanding entry count within the
// ring capacity.
//
// Indices increase forever and wrap modulo 2^32; slot positions are the
// index masked by capacity-1. The event fields implement a notification
// threshold: a consumer stores the index up to which it promises to keep
// polling, and a producer raises an out-of-band doorbell only when a
// publish crosses that threshold. Suppressing an owed notification would
// deadlock the peer, so the gate errs toward spurious wakeups.
//
// Entry types are opaque fixed-size structs supplied as type parameters;
// the ring never inspects their contents. Mapping the shared region and
// delivering doorbell signals are the caller's concern (see the shm and
// notify packages).
package ring
