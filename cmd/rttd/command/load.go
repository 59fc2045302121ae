// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/hashicorp/rttd/scheduler"
	"github.com/hashicorp/rttd/structs"
)

// LoadCommand is a manual-testing-only synthetic load generator: it submits
// ranging requests against a fake work source at a configured rate for a
// fixed duration, to exercise the background-gap and per-UID spam checks by
// hand from the debug shell. Never part of the runtime contract.
type LoadCommand struct {
	Meta
	Scheduler *scheduler.Scheduler
}

func (c *LoadCommand) Help() string {
	return generalHelp(`
Usage: rttd-debug load <uid> <requests-per-second> <seconds>

  Submit synthetic ranging requests against the given UID at the given rate
  for the given duration, for exercising the throttle policy by hand.
`)
}

func (c *LoadCommand) Synopsis() string {
	return "Generate synthetic ranging load"
}

func (c *LoadCommand) Name() string { return "load" }

func (c *LoadCommand) Run(args []string) int {
	if len(args) != 3 {
		c.Ui.Error("This command takes three arguments: <uid> <requests-per-second> <seconds>")
		return 1
	}
	uid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error: invalid uid: %s", err))
		return 1
	}
	rps, err := strconv.ParseFloat(args[1], 64)
	if err != nil || rps <= 0 {
		c.Ui.Error("Error: requests-per-second must be a positive number")
		return 1
	}
	seconds, err := strconv.Atoi(args[2])
	if err != nil || seconds <= 0 {
		c.Ui.Error("Error: seconds must be a positive integer")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(seconds)*time.Second)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	ws := structs.NewWorkSource(uid)
	submitted, failed := 0, 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		err := c.Scheduler.Submit(
			ws,
			structs.NewLivenessToken(fmt.Sprintf("rttd-debug-load-%d-%d", uid, submitted)),
			"rttd-debug", "load",
			&structs.RangingRequest{
				Responders: []*structs.Responder{{Type: structs.ResponderAP, MAC: structs.MAC{0xde, 0xad, 0xbe, 0xef, 0x00, byte(submitted)}}},
			},
			func([]*structs.RangingResult) {},
			false,
			"rttd-debug-load",
		)
		if err != nil {
			failed++
		} else {
			submitted++
		}
	}
	c.Ui.Output(fmt.Sprintf("submitted %d, rejected synchronously %d", submitted, failed))
	return 0
}
