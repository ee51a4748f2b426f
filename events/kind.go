// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package events

// Kind identifies the concrete type of a [Message] so a receiver can
// dispatch on it without a type switch over every possible struct.
// Packages that define messages (see renderloop) define their own
// Kind constants starting from [FirstUserKind].
type Kind int

// Unknown is the zero value of Kind; no real message should ever report it.
const Unknown Kind = 0

// FirstUserKind is the first Kind value available to a package that
// defines its own message types, leaving room below it for Queue-level
// sentinels without colliding with user kinds.
const FirstUserKind Kind = 1
