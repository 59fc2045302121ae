// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"bufio"
	"io"
	"strings"

	"github.com/hashicorp/cli"

	"github.com/hashicorp/rttd/scheduler"
)

// RunShell implements spec.md section 6's debug surface: a line-oriented
// shell reading one command per line from in, dispatching each line through
// the same cli.CLI machinery a one-shot invocation would use. Exits on EOF
// or a line of "exit"/"quit".
func RunShell(in io.Reader, ui cli.Ui, sched *scheduler.Scheduler, params *ParamSet) error {
	commands := Factory(ui, sched, params)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		args := strings.Fields(line)
		c := &cli.CLI{
			Name:     "rttd-debug",
			Args:     args,
			Commands: commands,
		}
		if _, err := c.Run(); err != nil {
			ui.Error(err.Error())
		}
	}
	return scanner.Err()
}
