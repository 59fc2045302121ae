// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package config builds the rttd agent's Config: the throttle, AZ overlay,
// and telemetry knobs from spec.md section 6, read once at process start
// and never re-read from the scheduler's hot path, mirroring Nomad's
// read-once client config contract.
package config

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hashicorp/go-envparse"
	multierror "github.com/hashicorp/go-multierror"
)

// Config is the fully-resolved agent configuration.
type Config struct {
	// BackgroundExecGapMS is the minimum gap, in milliseconds, between
	// dispatches attributed to the same UID while no foreground app owns
	// that UID's work source.
	BackgroundExecGapMS int64

	// ExemptPackages names calling packages that are never subject to the
	// background execution gap, regardless of foreground state.
	ExemptPackages []string

	// AZMinNTBUS and AZMaxNTBUS override an 11az responder's negotiated
	// min/max time-between-NTB-measurements. Zero leaves the responder's
	// own value untouched.
	AZMinNTBUS int
	AZMaxNTBUS int

	// ServiceName is the go-metrics key prefix.
	ServiceName string
}

// Default returns the zero-overlay configuration: no background gap, no
// exempt packages, no AZ overrides.
func Default() *Config {
	return &Config{
		ServiceName: "rttd",
	}
}

// Option mutates a Config at construction time.
type Option func(*Config)

// WithBackgroundExecGapMS sets the background execution gap.
func WithBackgroundExecGapMS(ms int64) Option {
	return func(c *Config) { c.BackgroundExecGapMS = ms }
}

// WithExemptPackages sets the background-throttle exemption list.
func WithExemptPackages(pkgs []string) Option {
	return func(c *Config) { c.ExemptPackages = pkgs }
}

// WithAZOverlay sets the 11az min/max time-between-NTB-measurement
// overrides.
func WithAZOverlay(minUS, maxUS int) Option {
	return func(c *Config) {
		c.AZMinNTBUS = minUS
		c.AZMaxNTBUS = maxUS
	}
}

// WithServiceName sets the go-metrics key prefix.
func WithServiceName(name string) Option {
	return func(c *Config) { c.ServiceName = name }
}

// New builds a Config from Default() plus the given options.
func New(opts ...Option) *Config {
	c := Default()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseEnv overlays KEY=VALUE pairs read from r, in the `go-envparse`
// format, onto c. Unknown keys are ignored so that one overlay file can be
// shared with other agents in the same deployment. Recognized keys:
//
//	background_exec_gap_ms
//	background_rtt_throttle_exception_list (comma-separated)
//	az_min_time_between_ntb_measurements_us
//	az_max_time_between_ntb_measurements_us
func (c *Config) ParseEnv(r io.Reader) error {
	env, err := envparse.Parse(r)
	if err != nil {
		return fmt.Errorf("config: parsing overlay: %w", err)
	}

	var result *multierror.Error
	if v, ok := env["background_exec_gap_ms"]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("background_exec_gap_ms: %w", err))
		} else {
			c.BackgroundExecGapMS = ms
		}
	}
	if v, ok := env["background_rtt_throttle_exception_list"]; ok && v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		c.ExemptPackages = parts
	}
	if v, ok := env["az_min_time_between_ntb_measurements_us"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("az_min_time_between_ntb_measurements_us: %w", err))
		} else {
			c.AZMinNTBUS = n
		}
	}
	if v, ok := env["az_max_time_between_ntb_measurements_us"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("az_max_time_between_ntb_measurements_us: %w", err))
		} else {
			c.AZMaxNTBUS = n
		}
	}
	return result.ErrorOrNil()
}

// Validate checks invariants that the scheduler relies on but cannot
// itself enforce (it trusts Config is already sane).
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.BackgroundExecGapMS < 0 {
		result = multierror.Append(result, fmt.Errorf("background_exec_gap_ms must be >= 0, got %d", c.BackgroundExecGapMS))
	}
	if c.AZMinNTBUS < 0 {
		result = multierror.Append(result, fmt.Errorf("az_min_time_between_ntb_measurements_us must be >= 0, got %d", c.AZMinNTBUS))
	}
	if c.AZMaxNTBUS < 0 {
		result = multierror.Append(result, fmt.Errorf("az_max_time_between_ntb_measurements_us must be >= 0, got %d", c.AZMaxNTBUS))
	}
	if c.AZMaxNTBUS > 0 && c.AZMinNTBUS > c.AZMaxNTBUS {
		result = multierror.Append(result, fmt.Errorf("az_min_time_between_ntb_measurements_us (%d) exceeds az_max (%d)", c.AZMinNTBUS, c.AZMaxNTBUS))
	}
	if c.ServiceName == "" {
		result = multierror.Append(result, fmt.Errorf("service name must not be empty"))
	}
	return result.ErrorOrNil()
}

