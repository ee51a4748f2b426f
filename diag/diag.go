// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag provides the render loop's diagnostics sink: an
// explicit, passed-by-reference replacement for the per-thread
// static-global debug flags and qDebug calls the original render
// loop used (see design note "per-agent mutable singletons" in
// SPEC_FULL.md §7). A [Sink] is enabled or not at construction time
// and every call site that wants to record something simply calls a
// method on it; disabled sinks are cheap no-ops.
package diag

import (
	"log/slog"
	"time"
)

// Sink records render-loop diagnostics. The zero value is a disabled
// sink: all of its methods are no-ops, so call sites never need to
// branch on whether timing is enabled.
type Sink struct {
	enabled bool
	log     *slog.Logger
}

// NewSink returns a [Sink]. If enabled is false, every method is a
// no-op. The logger may be nil, in which case [slog.Default] is used.
func NewSink(enabled bool, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{enabled: enabled, log: log}
}

// Enabled reports whether this sink records anything.
func (s *Sink) Enabled() bool {
	return s != nil && s.enabled
}

// Trace logs a single free-form diagnostic line, mirroring the
// original's RLDEBUG1 calls. It is meant for state-transition
// breadcrumbs, not per-frame timing (see [Sink.Timing] for that).
func (s *Sink) Trace(agent, msg string) {
	if !s.Enabled() {
		return
	}
	s.log.Debug(msg, "agent", agent)
}

// FrameTiming is the per-frame timing breakdown the original reports
// when QML_WINDOW_TIMING is set: time since the previous frame, time
// spent in sync, time spent reaching the first window's render call,
// and time spent after the final buffer swap.
type FrameTiming struct {
	SinceLast   time.Duration
	Sync        time.Duration
	FirstRender time.Duration
	AfterSwap   time.Duration
}

// Timing logs a [FrameTiming] breakdown for one window's render and
// present on the render worker.
func (s *Sink) Timing(t FrameTiming) {
	if !s.Enabled() {
		return
	}
	s.log.Debug("window timing",
		"sinceLast", t.SinceLast,
		"sync", t.Sync,
		"firstRender", t.FirstRender,
		"afterSwap", t.AfterSwap,
	)
}

// PolishSyncTiming is the timing breakdown for one polishAndSync call
// on the controller: time spent polishing items, time spent waiting
// for the render worker to pick up the sync request, and time spent
// in the sync itself once the worker woke up.
type PolishSyncTiming struct {
	Polish time.Duration
	Wait   time.Duration
	Sync   time.Duration
}

// PolishSync logs a [PolishSyncTiming] breakdown for one
// polishAndSync call.
func (s *Sink) PolishSync(t PolishSyncTiming) {
	if !s.Enabled() {
		return
	}
	s.log.Debug("polish and sync timing",
		"polish", t.Polish,
		"wait", t.Wait,
		"sync", t.Sync,
	)
}
