// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package testlog builds hclog.Logger instances that write to a test's own
// t.Log, so log output from a package under test is interleaved with (and
// only shown alongside failures of) the test that produced it.
package testlog

import (
	"testing"

	"github.com/hashicorp/go-hclog"
)

// HCLogger returns a logger at Trace level when -v is passed, Warn
// otherwise, writing through t.Log.
func HCLogger(t *testing.T) hclog.Logger {
	level := hclog.Warn
	if testing.Verbose() {
		level = hclog.Trace
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:            t.Name(),
		Level:           level,
		Output:          testWriter{t},
		IncludeLocation: true,
	})
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
