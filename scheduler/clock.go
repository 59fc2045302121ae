// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import "time"

// TimerHandle is the minimal surface the scheduler needs from an armed
// timer. *time.Timer already satisfies this.
type TimerHandle interface {
	Stop() bool
}

// Clock abstracts time so timeout-timer tests run deterministically.
// oss.indeed.com/go/libtime's Clock interface (used by the throttle
// package) only exposes Now(); the scheduler additionally needs to arm a
// single callback after a duration, so this interface extends that idiom
// with AfterFunc rather than forcing libtime's Clock to grow a method it
// doesn't have elsewhere in the ecosystem. See DESIGN.md.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) TimerHandle
}

// systemClock is the production Clock, backed directly by the time package.
type systemClock struct{}

// SystemClock returns the real wall-clock Clock.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) TimerHandle {
	return time.AfterFunc(d, f)
}
