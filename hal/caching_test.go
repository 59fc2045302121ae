// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package hal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/rttd/internal/ci"
	"github.com/hashicorp/rttd/structs"
)

type countingController struct {
	Controller
	calls int
}

func (c *countingController) GetCapabilities() structs.Capabilities {
	c.calls++
	return structs.Capabilities{SupportsLCI: true}
}

func TestCachingController_CachesUntilInvalidate(t *testing.T) {
	ci.Parallel(t)

	inner := &countingController{}
	c := NewCachingController(inner)

	caps := c.GetCapabilities()
	require.True(t, caps.SupportsLCI)
	require.Equal(t, 1, inner.calls)

	c.GetCapabilities()
	c.GetCapabilities()
	require.Equal(t, 1, inner.calls)

	c.Invalidate()
	c.GetCapabilities()
	require.Equal(t, 2, inner.calls)
}
