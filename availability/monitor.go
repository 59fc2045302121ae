// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package availability tracks whether the scheduler may dispatch: the
// conjunction of controller presence, device-idle mode, and location-mode.
package availability

import (
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// Monitor maintains available = controllerPresent && !idle && locationMode.
// IsAvailable is safe to call from any goroutine; the edge callbacks
// (OnEnable/OnDisable) are invoked synchronously from whichever Note* call
// causes the transition, so callers that need scheduler-context semantics
// must post the callback onward themselves (the scheduler's wiring does
// this by handing in callbacks that simply enqueue a tagged message).
type Monitor struct {
	logger hclog.Logger

	controllerPresent atomic.Bool
	locationMode      atomic.Bool
	idle              atomic.Bool // inverted sense stored directly

	available atomic.Bool

	onEnable  func()
	onDisable func()
}

// New constructs a Monitor. onEnable/onDisable fire on the false->true and
// true->false edges of IsAvailable respectively; both must be non-nil.
// Controller presence and location mode start false (unavailable); idle
// mode starts false (device not idle, i.e. does not itself block
// availability) to match a freshly started agent that has not yet heard
// from its device-idle provider.
func New(logger hclog.Logger, onEnable, onDisable func()) *Monitor {
	return &Monitor{
		logger:    logger.Named("availability"),
		onEnable:  onEnable,
		onDisable: onDisable,
	}
}

// IsAvailable reports the current conjunction. Safe for any goroutine.
func (m *Monitor) IsAvailable() bool {
	return m.available.Load()
}

// NoteControllerPresent updates the controller-presence input.
func (m *Monitor) NoteControllerPresent(present bool) {
	m.controllerPresent.Store(present)
	m.recompute()
}

// NoteIdle updates the device-idle input. is_idle true means the device is
// in doze/idle mode, which blocks availability.
func (m *Monitor) NoteIdle(isIdle bool) {
	m.idle.Store(isIdle)
	m.recompute()
}

// NoteLocationMode updates the location-mode input.
func (m *Monitor) NoteLocationMode(enabled bool) {
	m.locationMode.Store(enabled)
	m.recompute()
}

func (m *Monitor) recompute() {
	next := m.controllerPresent.Load() && !m.idle.Load() && m.locationMode.Load()
	prev := m.available.Swap(next)
	if prev == next {
		return // idempotent: no edge
	}
	if next {
		m.logger.Debug("availability enabled")
		m.onEnable()
	} else {
		m.logger.Debug("availability disabled")
		m.onDisable()
	}
}
