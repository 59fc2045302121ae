// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package mock provides a fake hal.Controller for use in scheduler tests,
// in the spirit of Nomad's drivers/mock package: a plain struct with
// injectable function fields rather than a generated mock.
package mock

import (
	"sync"

	"github.com/hashicorp/rttd/hal"
	"github.com/hashicorp/rttd/structs"
)

// Controller is a test double for hal.Controller. Tests set RangeRequestFn
// / CapabilitiesFn to control behavior and use Deliver/Close to drive the
// results channel. The zero value accepts every request synchronously and
// reports empty capabilities.
type Controller struct {
	RangeRequestFn func(cmdID uint32, req *structs.RangingRequest) bool
	CapabilitiesFn func() structs.Capabilities

	mu         sync.Mutex
	Cancelled  []CancelCall
	resultsCh  chan hal.ControllerResult
}

// CancelCall records one RangeCancel invocation for assertions.
type CancelCall struct {
	CmdID uint32
	MACs  []structs.MAC
}

// New constructs a Controller with a buffered results channel.
func New() *Controller {
	return &Controller{resultsCh: make(chan hal.ControllerResult, 16)}
}

// RangeRequest implements hal.Controller.
func (c *Controller) RangeRequest(cmdID uint32, req *structs.RangingRequest) bool {
	if c.RangeRequestFn != nil {
		return c.RangeRequestFn(cmdID, req)
	}
	return true
}

// RangeCancel implements hal.Controller.
func (c *Controller) RangeCancel(cmdID uint32, macs []structs.MAC) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Cancelled = append(c.Cancelled, CancelCall{CmdID: cmdID, MACs: macs})
}

// GetCapabilities implements hal.Controller.
func (c *Controller) GetCapabilities() structs.Capabilities {
	if c.CapabilitiesFn != nil {
		return c.CapabilitiesFn()
	}
	return structs.Capabilities{}
}

// Results implements hal.Controller.
func (c *Controller) Results() <-chan hal.ControllerResult {
	return c.resultsCh
}

// Deliver pushes a result as if the driver had emitted it asynchronously.
func (c *Controller) Deliver(result hal.ControllerResult) {
	c.resultsCh <- result
}

// CancelledCmdIDs returns the cmd IDs seen by RangeCancel, in call order.
func (c *Controller) CancelledCmdIDs() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uint32, len(c.Cancelled))
	for i, call := range c.Cancelled {
		ids[i] = call.CmdID
	}
	return ids
}
