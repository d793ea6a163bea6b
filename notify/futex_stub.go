//go:build !linux

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

package notify

import (
	"context"
	"errors"
)

// ErrUnsupported is returned on platforms without futex support. Use
// ChanDoorbell for in-process peers there.
var ErrUnsupported = errors.New("notify: futex doorbell requires linux")

// FutexDoorbell is unavailable on this platform.
type FutexDoorbell struct{}

// NewFutexDoorbell always fails on this platform; the returned doorbell
// errors on every operation.
func NewFutexDoorbell(word *uint32) *FutexDoorbell { return &FutexDoorbell{} }

func (d *FutexDoorbell) Ring() error                    { return ErrUnsupported }
func (d *FutexDoorbell) Wait(ctx context.Context) error { return ErrUnsupported }
func (d *FutexDoorbell) Close() error                   { return ErrUnsupported }
