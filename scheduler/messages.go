// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"github.com/hashicorp/rttd/hal"
	"github.com/hashicorp/rttd/structs"
)

// message is the tagged-union of everything that can mutate scheduler
// state. Every producer (Submit, Cancel, the liveness watcher, the
// Controller's result channel, the resolver callback, the timeout timer,
// the availability monitor) posts one of these rather than touching
// scheduler state directly.
type message interface{ isMessage() }

type submitMsg struct{ info *structs.RequestInfo }

func (submitMsg) isMessage() {}

type cancelMsg struct{ ws structs.WorkSource }

func (cancelMsg) isMessage() {}

type clientDeathMsg struct{ token structs.LivenessToken }

func (clientDeathMsg) isMessage() {}

type controllerResultMsg struct{ result hal.ControllerResult }

func (controllerResultMsg) isMessage() {}

type resolverDoneMsg struct {
	info *structs.RequestInfo
	req  *structs.RangingRequest
}

func (resolverDoneMsg) isMessage() {}

type timeoutMsg struct{ forCmdID uint32 }

func (timeoutMsg) isMessage() {}

type availabilityMsg struct{ available bool }

func (availabilityMsg) isMessage() {}

func (s *Scheduler) handle(msg message) {
	switch m := msg.(type) {
	case submitMsg:
		s.handleSubmit(m.info)
	case cancelMsg:
		s.handleCancel(m.ws)
	case clientDeathMsg:
		s.handleClientDeath(m.token)
	case controllerResultMsg:
		s.handleControllerResult(m.result)
	case resolverDoneMsg:
		s.handleResolverDone(m.info, m.req)
	case timeoutMsg:
		s.handleTimeout(m.forCmdID)
	case availabilityMsg:
		s.handleAvailabilityChange(m.available)
	}
}
