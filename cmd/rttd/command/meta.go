// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"strings"

	"github.com/hashicorp/cli"
)

// Meta embeds the shared cli.Ui and ParamSet every debug-shell subcommand
// needs, matching Nomad's command.Meta.
type Meta struct {
	Ui     cli.Ui
	Params *ParamSet
}

func (m *Meta) params() *ParamSet {
	if m.Params == nil {
		panic("rttd: command.Meta.Params is nil")
	}
	return m.Params
}

// generalHelp wraps a subcommand's usage block with the flags every
// debug-shell command accepts (currently none), mirroring
// Meta.GeneralOptionsUsage in Nomad.
func generalHelp(body string) string {
	return strings.TrimSpace(body) + "\n"
}
