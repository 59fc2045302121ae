// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package liveness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/rttd/internal/ci"
	"github.com/hashicorp/rttd/structs"
)

func TestRegistry_KillInvokesSubscribers(t *testing.T) {
	ci.Parallel(t)

	r := New()
	token := structs.NewLivenessToken("client-1")

	called := 0
	r.Subscribe(token, func() { called++ })
	r.Subscribe(token, func() { called++ })

	r.Kill(token)
	require.Equal(t, 2, called)

	// second Kill is a no-op: subscriptions were removed by the first.
	r.Kill(token)
	require.Equal(t, 2, called)
}

func TestRegistry_UnsubscribePreventsCallback(t *testing.T) {
	ci.Parallel(t)

	r := New()
	token := structs.NewLivenessToken("client-1")

	called := false
	unsubscribe := r.Subscribe(token, func() { called = true })
	unsubscribe()

	r.Kill(token)
	require.False(t, called)
}

func TestRegistry_TokensAreIndependent(t *testing.T) {
	ci.Parallel(t)

	r := New()
	a := structs.NewLivenessToken("a")
	b := structs.NewLivenessToken("b")

	aCalled, bCalled := false, false
	r.Subscribe(a, func() { aCalled = true })
	r.Subscribe(b, func() { bCalled = true })

	r.Kill(a)
	require.True(t, aCalled)
	require.False(t, bCalled)
}
