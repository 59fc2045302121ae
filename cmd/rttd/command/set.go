// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"fmt"

	"github.com/posener/complete"
)

// SetCommand implements spec.md section 6's `set <name> <value>`.
type SetCommand struct {
	Meta
}

func (c *SetCommand) Help() string {
	return generalHelp(`
Usage: rttd-debug set <name> <value>

  Overwrite a debug parameter. Takes effect immediately; the scheduler and
  throttle policy read these parameters on their normal dispatch path,
  except override_assume_no_privilege, which only the shell itself holds.
`)
}

func (c *SetCommand) Synopsis() string {
	return "Write a debug parameter"
}

func (c *SetCommand) Name() string { return "set" }

func (c *SetCommand) Run(args []string) int {
	if len(args) != 2 {
		c.Ui.Error("This command takes two arguments: <name> <value>")
		return 1
	}
	if err := c.params().Set(args[0], args[1]); err != nil {
		c.Ui.Error(fmt.Sprintf("Error: %s", err))
		return 1
	}
	c.Ui.Output(fmt.Sprintf("%s = %s", args[0], args[1]))
	return 0
}

func (c *SetCommand) AutocompleteFlags() complete.Flags { return nil }

func (c *SetCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictFunc(func(complete.Args) []string {
		return c.params().Names()
	})
}
