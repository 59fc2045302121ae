// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package mock provides a fake discovery.Resolver for resolver and
// scheduler tests.
package mock

import (
	"github.com/hashicorp/rttd/discovery"
	"github.com/hashicorp/rttd/structs"
)

// Resolver is a test double for discovery.Resolver. By default it is
// available and resolves synchronously (on the calling goroutine) using
// Mapping; set Async to defer delivery until Flush is called, to exercise
// the scheduler's deferred-resolution path.
type Resolver struct {
	Mapping      map[string]structs.MAC
	IsAvailable  bool
	Async        bool
	CallCount    int

	pending []func()
}

// NewAvailable constructs a Resolver that is present and resolves
// synchronously.
func NewAvailable() *Resolver {
	return &Resolver{Mapping: map[string]structs.MAC{}, IsAvailable: true}
}

// Available implements discovery.Resolver.
func (r *Resolver) Available() bool { return r.IsAvailable }

// RequestMACAddresses implements discovery.Resolver.
func (r *Resolver) RequestMACAddresses(uid int64, peerIDs []string, callback discovery.MappingCallback) {
	r.CallCount++
	deliver := func() {
		result := make(map[string]structs.MAC, len(peerIDs))
		for _, id := range peerIDs {
			if mac, ok := r.Mapping[id]; ok {
				result[id] = mac
			}
		}
		callback(result)
	}
	if r.Async {
		r.pending = append(r.pending, deliver)
		return
	}
	deliver()
}

// Flush runs every deferred callback queued while Async was set.
func (r *Resolver) Flush() {
	pending := r.pending
	r.pending = nil
	for _, fn := range pending {
		fn()
	}
}
