// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"fmt"

	"github.com/hashicorp/rttd/scheduler"
)

// GetCapabilitiesCommand implements spec.md section 6's `get_capabilities`:
// a structured dump of the Controller's negotiated characteristics.
type GetCapabilitiesCommand struct {
	Meta
	Scheduler *scheduler.Scheduler
}

func (c *GetCapabilitiesCommand) Help() string {
	return generalHelp(`
Usage: rttd-debug get_capabilities

  Print the Controller's negotiated characteristics.
`)
}

func (c *GetCapabilitiesCommand) Synopsis() string {
	return "Dump Controller capabilities"
}

func (c *GetCapabilitiesCommand) Name() string { return "get_capabilities" }

func (c *GetCapabilitiesCommand) Run(args []string) int {
	if len(args) != 0 {
		c.Ui.Error("This command takes no arguments")
		return 1
	}
	caps := c.Scheduler.Capabilities()
	c.Ui.Output(fmt.Sprintf("supports_one_sided_rtt = %t", caps.SupportsOneSidedRTT))
	c.Ui.Output(fmt.Sprintf("supports_lci = %t", caps.SupportsLCI))
	c.Ui.Output(fmt.Sprintf("supports_lcr = %t", caps.SupportsLCR))
	c.Ui.Output(fmt.Sprintf("supports_station_responder = %t", caps.SupportsStationResponder))
	c.Ui.Output(fmt.Sprintf("supports_11az_ntb_initiator = %t", caps.Supports11azNTBInitiator))
	c.Ui.Output(fmt.Sprintf("supports_secure_he_ltf = %t", caps.SupportsSecureHELTF))
	c.Ui.Output(fmt.Sprintf("supports_ranging_frame_protection = %t", caps.SupportsRangingFrameProtection))
	c.Ui.Output(fmt.Sprintf("max_supported_secure_he_ltf_version = %d", caps.MaxSupportedSecureHELTFVersion))
	c.Ui.Output(fmt.Sprintf("available = %t", c.Scheduler.IsAvailable()))
	return 0
}
