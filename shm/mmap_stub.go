//go:build !linux && !darwin

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

import "errors"

// ErrUnsupported is returned on platforms without shared memory mapping
// support.
var ErrUnsupported = errors.New("shm: platform not supported")

func init() {
	unmapMemory = func([]byte) error { return nil }
}

// CreateSegment is unavailable on this platform.
func CreateSegment(string, uint32, uintptr, uintptr) (*Segment, error) {
	return nil, ErrUnsupported
}

// OpenSegment is unavailable on this platform.
func OpenSegment(string) (*Segment, error) {
	return nil, ErrUnsupported
}
