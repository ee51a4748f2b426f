// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog(t *testing.T) {
	assert.Nil(t, Log(nil))

	err := fmt.Errorf("boom")
	assert.Equal(t, err, Log(err))
}

func TestLog1(t *testing.T) {
	v := Log1(42, nil)
	assert.Equal(t, 42, v)

	v = Log1(7, fmt.Errorf("boom"))
	assert.Equal(t, 7, v)
}

func TestLog2(t *testing.T) {
	a, b := Log2(1, "x", nil)
	assert.Equal(t, 1, a)
	assert.Equal(t, "x", b)
}
