// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package discovery defines the boundary contract to the peer-discovery
// subsystem (the "Discovery Resolver" in spec terms): it maps opaque peer
// handles to MAC addresses.
package discovery

import "github.com/hashicorp/rttd/structs"

// MappingCallback delivers the peer-ID to MAC mapping for a single
// RequestMACAddresses call. Unmapped IDs may be omitted from the map; the
// resolver package treats a missing entry the same as an explicit miss.
type MappingCallback func(mapping map[string]structs.MAC)

// Resolver is the out-of-scope Discovery Resolver contract.
type Resolver interface {
	// Available reports whether the discovery subsystem is present at
	// all. Aware-peer ranging requests are rejected synchronously at
	// submit time when this is false.
	Available() bool

	// RequestMACAddresses asynchronously resolves peerIDs for uid and
	// invokes callback exactly once when done. The callback may run on
	// any goroutine; callers must not assume it runs on the caller's
	// goroutine.
	RequestMACAddresses(uid int64, peerIDs []string, callback MappingCallback)
}
