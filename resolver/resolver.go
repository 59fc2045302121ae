// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package resolver implements the Peer Handle Resolver: it replaces
// peer-handle-only responders with MAC-carrying responders by asynchronously
// calling out to the discovery.Resolver, then re-entering the scheduler.
package resolver

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/hashicorp/rttd/discovery"
	"github.com/hashicorp/rttd/structs"
)

// Status is the outcome of ResolveIfNeeded.
type Status int

const (
	// Ready means no resolution was needed; dispatch may proceed.
	Ready Status = iota
	// Deferred means a resolution is in flight; the supplied callback
	// will be invoked exactly once when it completes.
	Deferred
	// Failed means resolution was already attempted once for this
	// request (req.HandlesTranslated) and information is still missing.
	Failed
)

// DoneCallback is invoked once resolution completes, carrying the rebuilt
// request ready for redispatch. It is always invoked on whatever goroutine
// the discovery.Resolver chooses to call back on; callers must trampoline
// it onto their own execution context.
type DoneCallback func(req *structs.RangingRequest)

// Resolver wraps a discovery.Resolver and implements the spec's
// resolve_if_needed contract. Each Resolver's singleflight group coalesces concurrent resolution requests that name the same peer-ID set
// for the same UID, so two requests racing to resolve the same handles
// share one discovery round trip.
type Resolver struct {
	discovery discovery.Resolver
	group     singleflight.Group
}

// New wraps a discovery.Resolver.
func New(d discovery.Resolver) *Resolver {
	return &Resolver{discovery: d}
}

// ResolveIfNeeded implements spec.md section 4.3. uid attributes the
// discovery lookup (the work source's primary UID).
func (r *Resolver) ResolveIfNeeded(uid int64, req *structs.RangingRequest, done DoneCallback) Status {
	peerIDs := unresolvedPeerIDs(req)
	if len(peerIDs) == 0 {
		return Ready
	}
	if req.HandlesTranslated {
		return Failed
	}
	req.HandlesTranslated = true

	key := coalesceKey(uid, peerIDs)
	shared := r.group.DoChan(key, func() (any, error) {
		inner := make(chan map[string]structs.MAC, 1)
		r.discovery.RequestMACAddresses(uid, peerIDs, func(mapping map[string]structs.MAC) {
			inner <- mapping
		})
		return <-inner, nil
	})
	// The fn above runs on a goroutine singleflight manages; this goroutine
	// only bridges its completion back to this specific req, so that two
	// requests naming the same peer IDs share one discovery round trip but
	// each still gets its own rebuilt *RangingRequest.
	go func() {
		result := <-shared
		mapping, _ := result.Val.(map[string]structs.MAC)
		done(rebuild(req, mapping))
	}()
	return Deferred
}

func unresolvedPeerIDs(req *structs.RangingRequest) []string {
	var ids []string
	for _, resp := range req.Responders {
		if resp.NeedsResolution() {
			ids = append(ids, resp.PeerHandle)
		}
	}
	return ids
}

// rebuild implements the substitution rule from spec.md section 4.3: for
// each responder with a handle, substitute the returned MAC if present,
// else drop that responder; responders with no handle pass through
// unchanged; burst size is preserved.
func rebuild(req *structs.RangingRequest, mapping map[string]structs.MAC) *structs.RangingRequest {
	out := &structs.RangingRequest{
		BurstSize: req.BurstSize,
		Secure:    req.Secure,
	}
	for _, resp := range req.Responders {
		if !resp.HasPeerHandle() {
			out.Responders = append(out.Responders, resp)
			continue
		}
		if !resp.MAC.IsZero() {
			out.Responders = append(out.Responders, resp)
			continue
		}
		mac, ok := mapping[resp.PeerHandle]
		if !ok {
			continue // drop: no MAC was resolved for this handle
		}
		next := *resp
		next.MAC = mac
		out.Responders = append(out.Responders, &next)
	}
	return out
}

func coalesceKey(uid int64, peerIDs []string) string {
	sorted := append([]string(nil), peerIDs...)
	sort.Strings(sorted)
	var b strings.Builder
	b.WriteString(strings.Join(sorted, ","))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(uid, 10))
	return b.String()
}
