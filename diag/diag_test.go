// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisabledSinkIsNoOp(t *testing.T) {
	var s *Sink
	assert.False(t, s.Enabled())
	s.Trace("worker", "should not panic")
	s.Timing(FrameTiming{})
	s.PolishSync(PolishSyncTiming{})

	s2 := NewSink(false, nil)
	assert.False(t, s2.Enabled())
}

func TestEnabledSink(t *testing.T) {
	s := NewSink(true, nil)
	assert.True(t, s.Enabled())
	s.Trace("controller", "starting worker")
	s.Timing(FrameTiming{SinceLast: time.Millisecond})
	s.PolishSync(PolishSyncTiming{Polish: time.Microsecond})
}
