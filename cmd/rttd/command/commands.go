// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"github.com/hashicorp/cli"

	"github.com/hashicorp/rttd/scheduler"
)

// Factory builds the debug shell's command set, matching the signature
// cli.CLI.Commands expects. sched and params must outlive the shell.
func Factory(ui cli.Ui, sched *scheduler.Scheduler, params *ParamSet) map[string]cli.CommandFactory {
	meta := Meta{Ui: ui, Params: params}
	return map[string]cli.CommandFactory{
		"reset": func() (cli.Command, error) {
			return &ResetCommand{Meta: meta}, nil
		},
		"get": func() (cli.Command, error) {
			return &GetCommand{Meta: meta}, nil
		},
		"set": func() (cli.Command, error) {
			return &SetCommand{Meta: meta}, nil
		},
		"get_capabilities": func() (cli.Command, error) {
			return &GetCapabilitiesCommand{Meta: meta, Scheduler: sched}, nil
		},
		"load": func() (cli.Command, error) {
			return &LoadCommand{Meta: meta, Scheduler: sched}, nil
		},
	}
}
