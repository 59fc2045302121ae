// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"fmt"

	"github.com/posener/complete"
)

// GetCommand implements spec.md section 6's `get <name>`.
type GetCommand struct {
	Meta
}

func (c *GetCommand) Help() string {
	return generalHelp(`
Usage: rttd-debug get <name>

  Print the current value of a debug parameter. Run without arguments to
  list every known parameter name.
`)
}

func (c *GetCommand) Synopsis() string {
	return "Read a debug parameter"
}

func (c *GetCommand) Name() string { return "get" }

func (c *GetCommand) Run(args []string) int {
	if len(args) == 0 {
		for _, name := range c.params().Names() {
			c.Ui.Output(name)
		}
		return 0
	}
	if len(args) != 1 {
		c.Ui.Error("This command takes one argument: <name>")
		return 1
	}
	value, err := c.params().Get(args[0])
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error: %s", err))
		return 1
	}
	c.Ui.Output(value)
	return 0
}

func (c *GetCommand) AutocompleteFlags() complete.Flags { return nil }

func (c *GetCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictFunc(func(complete.Args) []string {
		return c.params().Names()
	})
}
