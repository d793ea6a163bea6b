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

// Package logging provides the shared logger for segment and doorbell
// lifecycle events. The ring data path never logs.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once   sync.Once
	logger *logrus.Logger
)

// Default returns the process-wide logger, creating it on first use.
// The level is taken from XENRING_LOG_LEVEL when set.
func Default() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if lvl, err := logrus.ParseLevel(os.Getenv("XENRING_LOG_LEVEL")); err == nil {
			logger.SetLevel(lvl)
		} else {
			logger.SetLevel(logrus.WarnLevel)
		}
	})
	return logger
}

// WithSegment returns an entry tagged with the segment name.
func WithSegment(name string) *logrus.Entry {
	return Default().WithField("segment", name)
}
