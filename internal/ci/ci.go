// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package ci provides small test helpers shared across rttd's test suite.
package ci

import (
	"os"
	"testing"
)

// Parallel marks t as parallelizable, unless RTTD_CI_SERIAL is set, which
// some CI backends need in order to keep resource usage predictable.
func Parallel(t *testing.T) {
	if os.Getenv("RTTD_CI_SERIAL") != "" {
		return
	}
	t.Parallel()
}
