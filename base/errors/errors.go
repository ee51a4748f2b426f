// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors provides simple error-logging helpers that let call
// sites stay a single expression: log a non-nil error through the
// process logger and return it (or the accompanying value) unchanged,
// so the caller can still branch on it without a separate if-statement
// at every call site that merely wants the failure recorded.
package errors

import (
	"log/slog"
)

// Log logs the given error via [slog.Error] if it is non-nil, and
// returns it unchanged. It is meant to be used at the boundary with
// external collaborators (the GPU backend, the windowing system) whose
// failures are diagnostics, not fatal conditions.
func Log(err error) error {
	if err == nil {
		return nil
	}
	slog.Error(err.Error())
	return err
}

// Log1 is like [Log] but for a call that also returns a value.
// It is typically used as errors.Log1(someCall()) to keep the value
// without stopping to handle the error inline.
func Log1[T any](v T, err error) T {
	Log(err)
	return v
}

// Log2 is like [Log1] but for a call returning two values.
func Log2[T, U any](v T, u U, err error) (T, U) {
	Log(err)
	return v, u
}

// Ignore discards an error entirely. It documents, at the call site,
// that the error was considered and is intentionally not logged —
// as opposed to an error that was simply forgotten.
func Ignore(err error) {
	_ = err
}
