// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

// ResetCommand implements spec.md section 6's `reset`: restores every
// debug-shell parameter to the value it held when the daemon started.
type ResetCommand struct {
	Meta
}

func (c *ResetCommand) Help() string {
	return generalHelp(`
Usage: rttd-debug reset

  Restore every debug parameter to its startup default.
`)
}

func (c *ResetCommand) Synopsis() string {
	return "Restore debug parameters to their defaults"
}

func (c *ResetCommand) Name() string { return "reset" }

func (c *ResetCommand) Run(args []string) int {
	if len(args) != 0 {
		c.Ui.Error("This command takes no arguments")
		return 1
	}
	c.params().Reset()
	c.Ui.Output("parameters reset")
	return 0
}
