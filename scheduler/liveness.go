// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import "github.com/hashicorp/rttd/structs"

// LivenessWatcher subscribes to a client liveness token and reports death
// by invoking onDeath exactly once, on an arbitrary goroutine. The returned
// unsubscribe func is idempotent and must be called once the scheduler is
// done watching a token, per spec.md's invariant that a RequestInfo is
// removed from the queue only after its liveness subscription is torn down.
type LivenessWatcher interface {
	Subscribe(token structs.LivenessToken, onDeath func()) (unsubscribe func())
}
