// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package mock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/rttd/internal/ci"
	"github.com/hashicorp/rttd/structs"
)

func TestStore_SetThenLookup(t *testing.T) {
	ci.Parallel(t)

	store := New()
	store.Set("my-ssid", structs.SecuritySAE, "hunter2")

	pass, ok := store.Lookup("my-ssid", structs.SecuritySAE)
	require.True(t, ok)
	require.Equal(t, "hunter2", pass)

	_, ok = store.Lookup("my-ssid", structs.SecurityPSK)
	require.False(t, ok)
}
