// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package mock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/rttd/internal/ci"
	"github.com/hashicorp/rttd/structs"
)

func TestResolver_SyncResolution(t *testing.T) {
	ci.Parallel(t)

	r := NewAvailable()
	r.Mapping["peer-1"] = structs.MAC{1, 2, 3, 4, 5, 6}

	var got map[string]structs.MAC
	r.RequestMACAddresses(1, []string{"peer-1", "peer-2"}, func(mapping map[string]structs.MAC) {
		got = mapping
	})
	require.Equal(t, 1, r.CallCount)
	require.Contains(t, got, "peer-1")
	require.NotContains(t, got, "peer-2")
}

func TestResolver_AsyncDefersUntilFlush(t *testing.T) {
	ci.Parallel(t)

	r := NewAvailable()
	r.Async = true
	r.Mapping["peer-1"] = structs.MAC{1, 2, 3, 4, 5, 6}

	called := false
	r.RequestMACAddresses(1, []string{"peer-1"}, func(map[string]structs.MAC) {
		called = true
	})
	require.False(t, called)

	r.Flush()
	require.True(t, called)
}
