// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package command implements the debug shell named in spec.md section 6:
// "a shell command interface exposing reset, get <name>, set <name> <value>
// for a small parameter map ... and get_capabilities as a structured dump.
// Not part of the runtime contract." Built the way Nomad builds its own CLI
// surface: small cli.Command implementations sharing a Meta, registered in a
// factory map handed to cli.CLI.
package command

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/rttd/scheduler"
	"github.com/hashicorp/rttd/throttle"
)

// Param is one entry in the debug shell's <name, value> parameter map. Get
// and Set round-trip through strings since the shell is a text interface;
// Default restores the value reset installs.
type Param struct {
	Get     func() string
	Set     func(string) error
	Default func()
}

// ParamSet is the side-channel parameter map the debug surface mutates. It
// must never mutate queue state directly (per spec.md section 8's design
// notes) — every entry here except override_assume_no_privilege is read by
// the scheduler or throttle policy on their own fast path, never the other
// way around; override_assume_no_privilege is held only in ParamSet.
type ParamSet struct {
	sched             *scheduler.Scheduler
	throttle          *throttle.Policy
	assumeNoPrivilege atomic.Bool

	defaultGapMS    int64
	defaultExempt   []string
	defaultAZMin    int
	defaultAZMax    int
	defaultNoPrivBy bool
}

// NewParamSet builds the parameter map against the live scheduler and
// throttle policy, capturing their current values as the reset defaults.
func NewParamSet(sched *scheduler.Scheduler, policy *throttle.Policy) *ParamSet {
	azMin, azMax := sched.AZOverlay()
	return &ParamSet{
		sched:         sched,
		throttle:      policy,
		defaultGapMS:  policy.BackgroundExecGapMS(),
		defaultExempt: policy.ExemptPackages(),
		defaultAZMin:  azMin,
		defaultAZMax:  azMax,
	}
}

// AssumeNoPrivilege reports the "override-assume-no-privilege" switch named
// in spec.md section 6. The value is only stored here: neither the scheduler
// nor the transport reads it, so setting it does not change the privilege
// flag a request is submitted with.
func (p *ParamSet) AssumeNoPrivilege() bool {
	return p.assumeNoPrivilege.Load()
}

func (p *ParamSet) params() map[string]Param {
	return map[string]Param{
		"background_exec_gap_ms": {
			Get: func() string {
				return strconv.FormatInt(p.throttle.BackgroundExecGapMS(), 10)
			},
			Set: func(v string) error {
				ms, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return fmt.Errorf("background_exec_gap_ms: %w", err)
				}
				p.throttle.SetBackgroundExecGapMS(ms)
				return nil
			},
			Default: func() { p.throttle.SetBackgroundExecGapMS(p.defaultGapMS) },
		},
		"background_rtt_throttle_exception_list": {
			Get: func() string {
				return strings.Join(p.throttle.ExemptPackages(), ",")
			},
			Set: func(v string) error {
				var pkgs []string
				if v != "" {
					pkgs = strings.Split(v, ",")
				}
				p.throttle.SetExemptPackages(pkgs)
				return nil
			},
			Default: func() { p.throttle.SetExemptPackages(p.defaultExempt) },
		},
		"az_min_time_between_ntb_measurements_us": {
			Get: func() string {
				min, _ := p.sched.AZOverlay()
				return strconv.Itoa(min)
			},
			Set: func(v string) error {
				n, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("az_min_time_between_ntb_measurements_us: %w", err)
				}
				_, max := p.sched.AZOverlay()
				p.sched.SetAZOverlay(n, max)
				return nil
			},
			Default: func() {
				_, max := p.sched.AZOverlay()
				p.sched.SetAZOverlay(p.defaultAZMin, max)
			},
		},
		"az_max_time_between_ntb_measurements_us": {
			Get: func() string {
				_, max := p.sched.AZOverlay()
				return strconv.Itoa(max)
			},
			Set: func(v string) error {
				n, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("az_max_time_between_ntb_measurements_us: %w", err)
				}
				min, _ := p.sched.AZOverlay()
				p.sched.SetAZOverlay(min, n)
				return nil
			},
			Default: func() {
				min, _ := p.sched.AZOverlay()
				p.sched.SetAZOverlay(min, p.defaultAZMax)
			},
		},
		"override_assume_no_privilege": {
			Get: func() string {
				return strconv.FormatBool(p.assumeNoPrivilege.Load())
			},
			Set: func(v string) error {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return fmt.Errorf("override_assume_no_privilege: %w", err)
				}
				p.assumeNoPrivilege.Store(b)
				return nil
			},
			Default: func() { p.assumeNoPrivilege.Store(p.defaultNoPrivBy) },
		},
	}
}

// Names returns every parameter name, sorted, for autocomplete and for
// Reset's iteration order.
func (p *ParamSet) Names() []string {
	params := p.params()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named parameter's current value, or an error if name is
// unknown.
func (p *ParamSet) Get(name string) (string, error) {
	param, ok := p.params()[name]
	if !ok {
		return "", fmt.Errorf("rttd: unknown parameter %q", name)
	}
	return param.Get(), nil
}

// Set updates the named parameter, or returns an error if name is unknown or
// value fails to parse.
func (p *ParamSet) Set(name, value string) error {
	param, ok := p.params()[name]
	if !ok {
		return fmt.Errorf("rttd: unknown parameter %q", name)
	}
	return param.Set(value)
}

// Reset restores every parameter to the value captured at NewParamSet time.
func (p *ParamSet) Reset() {
	for _, param := range p.params() {
		param.Default()
	}
}
