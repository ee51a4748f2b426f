// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderloop

import (
	"os"
	"strconv"
	"time"

	"github.com/coreviz/renderloop/base/errors"
)

// defaultExhaustDelay is how long the controller waits after the
// first update() in a burst before actually requesting a sync, so
// that several update() calls arriving in the same tick collapse into
// one frame. Matches the original's default QML_EXHAUST_DELAY of 5ms.
const defaultExhaustDelay = 5 * time.Millisecond

// defaultRefreshInterval is the fallback animation-tick interval used
// while every tracked window is obscured, matching a typical 60Hz
// display's frame period.
const defaultRefreshInterval = 16 * time.Millisecond

// Config carries the render loop's environment-tunable knobs. The
// zero value is not valid; use [ConfigFromEnv] or fill in every field
// explicitly (RefreshInterval must be positive).
type Config struct {
	// ExhaustDelay is the update() coalescing delay. Zero disables
	// coalescing: every update() requests a sync immediately.
	ExhaustDelay time.Duration

	// WindowTiming enables the diagnostics sink's per-frame and
	// per-polish-and-sync timing breakdowns when NewLoopController is
	// given a nil sink and builds its own.
	WindowTiming bool

	// RefreshInterval is the fallback animation-tick interval used
	// while obscured.
	RefreshInterval time.Duration
}

// ConfigFromEnv builds a [Config] from QML_EXHAUST_DELAY (integer
// milliseconds) and QML_WINDOW_TIMING (any non-empty value enables
// it). ExhaustDelay falls back to [defaultExhaustDelay] when the
// variable is unset or not an integer; RefreshInterval is always
// [defaultRefreshInterval].
func ConfigFromEnv() *Config {
	cfg := &Config{
		ExhaustDelay:    defaultExhaustDelay,
		RefreshInterval: defaultRefreshInterval,
	}
	if v := os.Getenv("QML_EXHAUST_DELAY"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.ExhaustDelay = time.Duration(ms) * time.Millisecond
		} else {
			errors.Log(err)
		}
	}
	if os.Getenv("QML_WINDOW_TIMING") != "" {
		cfg.WindowTiming = true
	}
	return cfg
}
