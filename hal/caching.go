// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package hal

import (
	"sync"

	"github.com/hashicorp/rttd/structs"
)

// CachingController wraps a Controller and caches GetCapabilities until
// Invalidate is called. Production AOSP-style RTT services cache
// capabilities for the lifetime of a Controller instance and only refresh
// them when the controller is torn down and a new one takes its place.
// Nothing in this module calls Invalidate on its own: the availability
// monitor is not connected to this wrapper, so the cache is kept until a
// caller invalidates it.
type CachingController struct {
	Controller

	mu     sync.Mutex
	cached *structs.Capabilities
}

// NewCachingController wraps inner with a capabilities cache.
func NewCachingController(inner Controller) *CachingController {
	return &CachingController{Controller: inner}
}

// GetCapabilities returns the cached capabilities, querying the wrapped
// Controller only on first call or after Invalidate.
func (c *CachingController) GetCapabilities() structs.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil {
		caps := c.Controller.GetCapabilities()
		c.cached = &caps
	}
	return *c.cached
}

// Invalidate drops the cached capabilities so the next call re-queries the
// underlying Controller. Call this whenever the Controller instance behind
// this wrapper may have changed (controller-present edge).
func (c *CachingController) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}
