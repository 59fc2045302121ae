// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"time"

	"github.com/hashicorp/rttd/hal"
	"github.com/hashicorp/rttd/postproc"
	"github.com/hashicorp/rttd/resolver"
	"github.com/hashicorp/rttd/structs"
	"github.com/hashicorp/rttd/throttle"
)

// handleSubmit implements spec.md section 4.4 `submit`'s body, after
// synchronous validation has already passed in Submit.
func (s *Scheduler) handleSubmit(info *structs.RequestInfo) {
	unsubscribe := s.liveness.Subscribe(info.Liveness, func() { s.onClientDeath(info.Liveness) })
	s.unsubs[info] = unsubscribe

	if !s.available {
		s.deliverFailure(info, structs.StatusNotAvailable)
		s.unsubscribe(info)
		return
	}

	s.applyOverlay(info.Request)
	s.fillSecurePassphrase(info.Request)

	if !throttle.AllowSubmit(s.queue.workSources(), info.WorkSource) {
		s.logger.Debug("submission rejected by spam check", "package", info.CallingPackage)
		s.deliverFailure(info, structs.StatusFail)
		s.unsubscribe(info)
		s.metrics.IncrCounter([]string{"throttle", "rejected"}, 1)
		return
	}

	s.queue.push(info)
	s.metrics.SetGauge([]string{"queue", "depth"}, float32(s.queue.len()))
	s.tryDispatch()
}

// handleCancel implements spec.md section 4.4 `cancel`.
func (s *Scheduler) handleCancel(ws structs.WorkSource) {
	prevHead := s.queue.head()
	s.queue.removeWhere(
		func(r *structs.RequestInfo) bool {
			remaining := r.WorkSource.Subtract(ws)
			if remaining.Empty() {
				return false
			}
			r.WorkSource = remaining
			return true
		},
		func(r *structs.RequestInfo) {
			if r == prevHead && r.Dispatched {
				s.cancelAtController(r)
				s.deliverFailure(r, structs.StatusFail)
			}
			s.unsubscribe(r)
		},
	)
	s.tryDispatch()
}

// handleClientDeath implements spec.md section 4.4 `on_client_death`,
// scoped by liveness token rather than by UID: every queued RequestInfo
// that named this token when it was subscribed is this client's.
func (s *Scheduler) handleClientDeath(token structs.LivenessToken) {
	prevHead := s.queue.head()
	s.queue.removeWhere(
		func(r *structs.RequestInfo) bool { return r.Liveness != token },
		func(r *structs.RequestInfo) {
			if r == prevHead && r.Dispatched {
				s.cancelAtController(r)
				s.deliverFailure(r, structs.StatusFail)
			}
			s.unsubscribe(r)
		},
	)
	s.tryDispatch()
}

// handleControllerResult implements spec.md section 4.4
// `on_controller_result`.
func (s *Scheduler) handleControllerResult(result hal.ControllerResult) {
	head := s.queue.head()
	if head == nil || !head.Dispatched || head.CmdID != result.CmdID {
		s.logger.Trace("dropping controller result for unknown or stale cmd_id", "cmd_id", result.CmdID)
		return
	}
	s.cancelTimer()

	if !s.permission.locationOK(head.WorkSource, isAwareOnly(head.Request)) {
		s.deliverFailure(head, structs.StatusLocationPermissionMissing)
		s.completeHead(head)
		s.tryDispatch()
		return
	}

	results := postproc.Process(head.Request, result.Results, head.Privileged)
	head.Callback(results)
	s.metrics.IncrCounter([]string{"result", "delivered"}, 1)
	s.completeHead(head)
	s.tryDispatch()
}

// handleResolverDone implements the re-entry described in spec.md section
// 4.3: when the mapping callback fires, the engine is re-entered to
// attempt dispatch with the MAC-substituted request.
func (s *Scheduler) handleResolverDone(info *structs.RequestInfo, req *structs.RangingRequest) {
	if s.queue.head() != info {
		// info was cancelled, failed on client death, or superseded while
		// resolution was in flight; the stale result is simply discarded.
		return
	}
	info.Request = req
	s.tryDispatch()
}

// handleTimeout implements spec.md section 4.4 `on_timeout`.
func (s *Scheduler) handleTimeout(forCmdID uint32) {
	head := s.queue.head()
	if head == nil || !head.Dispatched || head.CmdID != forCmdID {
		s.logger.Trace("ignoring timeout for non-dispatched or stale request", "cmd_id", forCmdID)
		return
	}
	s.metrics.IncrCounter([]string{"timeout"}, 1)
	s.cancelAtController(head)
	s.deliverFailure(head, structs.StatusFail)
	s.completeHead(head)
	s.tryDispatch()
}

// handleAvailabilityChange implements spec.md section 4.4
// `on_availability_change`.
func (s *Scheduler) handleAvailabilityChange(available bool) {
	s.available = available
	s.availableSnapshot.Store(available)
	if !available {
		for _, r := range s.queue.all() {
			if r.Dispatched {
				s.cancelAtController(r)
			}
			s.deliverFailure(r, structs.StatusNotAvailable)
			s.unsubscribe(r)
		}
		s.queue.clear()
		s.popHead = false
		s.cancelTimer()
		return
	}
	s.tryDispatch()
}

// tryDispatch is the dispatch procedure from spec.md section 4.4, steps
// 1-10. It is called whenever the queue may need to advance and recurses
// (via plain Go recursion, not re-entrant messaging, since it never
// crosses a suspension point) until the head is stable: dispatched,
// awaiting resolution, or the queue is empty.
func (s *Scheduler) tryDispatch() {
	if s.popHead {
		s.queue.popHead()
		s.popHead = false
	}

	head := s.queue.head()
	if head == nil {
		return
	}
	if head.Request.HandlesTranslated && !head.Dispatched {
		return // resolution in flight; await the resolver callback
	}
	if head.Dispatched {
		return // a Controller result is pending
	}
	if !s.available {
		s.deliverFailure(head, structs.StatusNotAvailable)
		s.completeHead(head)
		s.tryDispatch()
		return
	}

	switch s.resolver.ResolveIfNeeded(head.WorkSource.SourceUID, head.Request, func(req *structs.RangingRequest) {
		s.post(resolverDoneMsg{info: head, req: req})
	}) {
	case resolver.Deferred:
		return
	case resolver.Failed:
		s.deliverFailure(head, structs.StatusFail)
		s.completeHead(head)
		s.tryDispatch()
		return
	}

	if !s.throttle.AllowDispatch(head.WorkSource, head.CallingPackage) {
		s.deliverFailure(head, structs.StatusFail)
		s.completeHead(head)
		s.tryDispatch()
		return
	}

	s.nextCmdID++
	cmdID := s.nextCmdID
	head.CmdID = cmdID
	head.DispatchedAt = s.clock.Now()

	if !s.controller.RangeRequest(cmdID, head.Request) {
		s.deliverFailure(head, structs.StatusFail)
		s.completeHead(head)
		s.tryDispatch()
		return
	}

	head.Dispatched = true
	timeout := HALRangingTimeout
	if head.Request.HasAwarePeer() {
		timeout = HALAwareRangingTimeout
	}
	s.armTimer(cmdID, timeout)
	s.metrics.IncrCounter([]string{"dispatch"}, 1)
}

func (s *Scheduler) applyOverlay(req *structs.RangingRequest) {
	minNTBUS, maxNTBUS := s.AZOverlay()
	for _, r := range req.Responders {
		if !r.Supports11az {
			continue
		}
		if minNTBUS > 0 {
			r.MinTimeBetweenNTBMeasurementsUS = minNTBUS
		}
		if maxNTBUS > 0 {
			r.MaxTimeBetweenNTBMeasurementsUS = maxNTBUS
		}
	}
}

// fillSecurePassphrase implements spec.md's resolution of its own Open
// Question: translate SSID first, then look up. No SSID-translation
// collaborator is named in scope, so the SSID is used as given; a
// translation step can be layered in front of Lookup without changing this
// call site.
func (s *Scheduler) fillSecurePassphrase(req *structs.RangingRequest) {
	fill := func(cfg *structs.SecureConfig) {
		if cfg == nil || cfg.Passphrase != "" || cfg.SSID == "" {
			return
		}
		sec := structs.SecurityTypeFromAKM(cfg.AKMs)
		if pass, ok := s.credential.Lookup(cfg.SSID, sec); ok {
			cfg.Passphrase = pass
		}
	}
	fill(req.Secure)
	for _, r := range req.Responders {
		fill(r.Secure)
	}
}

func (s *Scheduler) cancelAtController(r *structs.RequestInfo) {
	macs := make([]structs.MAC, 0, len(r.Request.Responders))
	for _, resp := range r.Request.Responders {
		if !resp.MAC.IsZero() {
			macs = append(macs, resp.MAC)
		}
	}
	s.controller.RangeCancel(r.CmdID, macs)
	s.cancelTimer()
}

func (s *Scheduler) armTimer(cmdID uint32, timeout time.Duration) {
	s.cancelTimer()
	s.timer = s.clock.AfterFunc(timeout, func() { s.post(timeoutMsg{forCmdID: cmdID}) })
}

func (s *Scheduler) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) unsubscribe(info *structs.RequestInfo) {
	if fn, ok := s.unsubs[info]; ok {
		fn()
		delete(s.unsubs, info)
	}
}

func (s *Scheduler) completeHead(info *structs.RequestInfo) {
	s.popHead = true
	s.unsubscribe(info)
}

// deliverFailure invokes info's callback exactly once with a
// same-status result for every responder in the original request.
func (s *Scheduler) deliverFailure(info *structs.RequestInfo, status structs.StatusCode) {
	results := make([]*structs.RangingResult, len(info.Request.Responders))
	for i, r := range info.Request.Responders {
		results[i] = &structs.RangingResult{
			Status:   status,
			Identity: postproc.Identity(r),
		}
	}
	info.Callback(results)
}

func isAwareOnly(req *structs.RangingRequest) bool {
	if len(req.Responders) == 0 {
		return false
	}
	for _, r := range req.Responders {
		if r.Type != structs.ResponderAware {
			return false
		}
	}
	return true
}
