// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenegraph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerAnimationDriverFiresStartedAndStopped(t *testing.T) {
	d := NewTickerAnimationDriver(0)

	var started, stopped int
	d.OnStarted(func() { started++ })
	d.OnStopped(func() { stopped++ })

	assert.False(t, d.IsRunning())

	id := d.StartAnimation(time.Hour)
	assert.True(t, d.IsRunning())
	assert.Equal(t, 1, started)
	assert.Equal(t, 0, stopped)

	d.StopAnimation(id)
	assert.False(t, d.IsRunning())
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, stopped)
}

func TestTickerAnimationDriverAdvancePrunesExpired(t *testing.T) {
	d := NewTickerAnimationDriver(0)
	var stopped int
	d.OnStopped(func() { stopped++ })

	d.StartAnimation(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	d.Advance()

	assert.False(t, d.IsRunning())
	assert.Equal(t, 1, stopped)
}

func TestTickerAnimationDriverBackgroundPrune(t *testing.T) {
	d := NewTickerAnimationDriver(2 * time.Millisecond)
	var stopped int
	done := make(chan struct{})
	d.OnStopped(func() { stopped++; close(done) })

	d.StartAnimation(time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background prune loop never fired stopped callback")
	}
	require.Equal(t, 1, stopped)
	assert.False(t, d.IsRunning())
}

func TestTickerAnimationDriverMultipleConcurrentAnimations(t *testing.T) {
	d := NewTickerAnimationDriver(0)
	var started, stopped int
	d.OnStarted(func() { started++ })
	d.OnStopped(func() { stopped++ })

	id1 := d.StartAnimation(time.Hour)
	id2 := d.StartAnimation(time.Hour)
	assert.Equal(t, 1, started, "starting a second animation while one is active must not re-fire started")

	d.StopAnimation(id1)
	assert.Equal(t, 0, stopped, "the driver stays running while any animation remains active")

	d.StopAnimation(id2)
	assert.Equal(t, 1, stopped)
}
