// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package mock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/rttd/hal"
	"github.com/hashicorp/rttd/internal/ci"
	"github.com/hashicorp/rttd/structs"
)

func TestController_DefaultAccepts(t *testing.T) {
	ci.Parallel(t)

	c := New()
	require.True(t, c.RangeRequest(1, &structs.RangingRequest{}))
	require.Equal(t, structs.Capabilities{}, c.GetCapabilities())
}

func TestController_RangeCancelRecordsCalls(t *testing.T) {
	ci.Parallel(t)

	c := New()
	c.RangeCancel(7, []structs.MAC{{1, 2, 3, 4, 5, 6}})
	require.Equal(t, []uint32{7}, c.CancelledCmdIDs())
}

func TestController_DeliverPublishesOnResultsChannel(t *testing.T) {
	ci.Parallel(t)

	c := New()
	result := hal.ControllerResult{CmdID: 3}
	c.Deliver(result)

	got := <-c.Results()
	require.Equal(t, uint32(3), got.CmdID)
}

func TestController_InjectedFunctions(t *testing.T) {
	ci.Parallel(t)

	c := New()
	c.RangeRequestFn = func(cmdID uint32, req *structs.RangingRequest) bool { return false }
	c.CapabilitiesFn = func() structs.Capabilities { return structs.Capabilities{SupportsLCR: true} }

	require.False(t, c.RangeRequest(1, &structs.RangingRequest{}))
	require.True(t, c.GetCapabilities().SupportsLCR)
}
