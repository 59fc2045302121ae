// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package scheduler implements the Request Lifecycle Engine: the single
// owner of the queue and of the Controller slot. All mutation happens on
// one goroutine (the "scheduler context"); every external collaborator
// callback is trampolined onto it as a tagged message, modeled on Nomad's
// TaskRunner.Run() select loop over channels owned by one goroutine.
package scheduler

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/rttd/credential"
	"github.com/hashicorp/rttd/discovery"
	"github.com/hashicorp/rttd/hal"
	"github.com/hashicorp/rttd/resolver"
	"github.com/hashicorp/rttd/structs"
	"github.com/hashicorp/rttd/telemetry"
	"github.com/hashicorp/rttd/throttle"
)

// Timeouts, per spec.md section 4.4 step 10.
const (
	HALRangingTimeout      = 5000 * time.Millisecond
	HALAwareRangingTimeout = 10000 * time.Millisecond
)

// Synchronous validation errors a Submit call may return. These are the
// only errors the scheduler raises synchronously; every other failure is
// terminal-but-asynchronous, delivered on the request's callback.
var (
	ErrEmptyRequest     = errors.New("rttd: ranging request has no responders")
	ErrNilResponder     = errors.New("rttd: ranging request contains a nil responder")
	ErrNilCallback      = errors.New("rttd: ranging request callback is nil")
	ErrNilLiveness      = errors.New("rttd: liveness token is required")
	ErrAwareUnsupported = errors.New("rttd: aware peer requested but discovery subsystem is unavailable")
)

// PermissionChecker re-validates location-sensitive permissions at result
// delivery time, since they may have been revoked between submission and
// the Controller's asynchronous result. The zero value (both funcs nil)
// always permits, matching a deployment
// that has no permission subsystem wired in yet.
type PermissionChecker struct {
	HasLocationPermission      func(ws structs.WorkSource) bool
	HasNearbyDevicesPermission func(ws structs.WorkSource) bool
}

func (p PermissionChecker) locationOK(ws structs.WorkSource, awareOnly bool) bool {
	if p.HasLocationPermission == nil || p.HasLocationPermission(ws) {
		return true
	}
	if awareOnly && p.HasNearbyDevicesPermission != nil {
		return p.HasNearbyDevicesPermission(ws)
	}
	return false
}

// Config bundles the collaborators and policy knobs the scheduler needs.
type Config struct {
	Logger     hclog.Logger
	Clock      Clock
	Controller hal.Controller
	Discovery  discovery.Resolver
	Throttle   *throttle.Policy
	Liveness   LivenessWatcher
	Permission PermissionChecker
	Metrics    *telemetry.Emitter
	Credential credential.Store

	// AZMinNTBUS and AZMaxNTBUS override an 11az responder's negotiated
	// min/max time-between-NTB-measurements, per spec.md section 6's
	// config overlay. Zero leaves the responder's own value untouched.
	AZMinNTBUS int
	AZMaxNTBUS int
}

// Scheduler is the Request Lifecycle Engine. Construct with New and start
// the run loop with Run; every exported method is safe to call from any
// goroutine. Submit, Cancel and OnAvailabilityChange post a message onto the
// scheduler's own goroutine; IsAvailable, Capabilities, AZOverlay and
// SetAZOverlay read or write concurrency-safe state directly.
type Scheduler struct {
	logger     hclog.Logger
	clock      Clock
	controller hal.Controller
	discovery  discovery.Resolver
	resolver   *resolver.Resolver
	throttle   *throttle.Policy
	liveness   LivenessWatcher
	permission PermissionChecker
	metrics    *telemetry.Emitter
	credential credential.Store
	azMinNTBUS atomic.Int64
	azMaxNTBUS atomic.Int64

	inbox chan message
	done  chan struct{}

	// scheduler-context-only state below; touched only from Run's goroutine.
	queue     *requestQueue
	unsubs    map[*structs.RequestInfo]func()
	popHead   bool
	nextCmdID uint32
	timer     TimerHandle
	available bool

	// availableSnapshot mirrors `available` for readers outside the
	// scheduler goroutine (the transport package's IsAvailable RPC).
	availableSnapshot atomic.Bool
}

// New constructs a Scheduler. Call Run (in its own goroutine) to start
// processing.
func New(cfg Config) *Scheduler {
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoOp()
	}
	if cfg.Credential == nil {
		cfg.Credential = credential.NoOp()
	}
	s := &Scheduler{
		logger:     cfg.Logger.Named("scheduler"),
		clock:      cfg.Clock,
		controller: cfg.Controller,
		discovery:  cfg.Discovery,
		resolver:   resolver.New(cfg.Discovery),
		throttle:   cfg.Throttle,
		liveness:   cfg.Liveness,
		permission: cfg.Permission,
		metrics:    cfg.Metrics,
		credential: cfg.Credential,
		inbox:      make(chan message, 64),
		done:       make(chan struct{}),
		queue:      newRequestQueue(),
		unsubs:     make(map[*structs.RequestInfo]func()),
	}
	s.azMinNTBUS.Store(int64(cfg.AZMinNTBUS))
	s.azMaxNTBUS.Store(int64(cfg.AZMaxNTBUS))
	return s
}

// SetAZOverlay updates the 11az min/max NTB overlay live, for the debug
// shell's `set az_min_time_between_ntb_measurements_us` /
// `set az_max_time_between_ntb_measurements_us` commands.
func (s *Scheduler) SetAZOverlay(minNTBUS, maxNTBUS int) {
	s.azMinNTBUS.Store(int64(minNTBUS))
	s.azMaxNTBUS.Store(int64(maxNTBUS))
}

// AZOverlay returns the current 11az min/max NTB overlay.
func (s *Scheduler) AZOverlay() (minNTBUS, maxNTBUS int) {
	return int(s.azMinNTBUS.Load()), int(s.azMaxNTBUS.Load())
}

// Run processes messages until Stop is called. It must run on its own
// goroutine; it is the only goroutine that ever touches queue/timer/cmdID
// state.
func (s *Scheduler) Run() {
	controllerResults := s.controller.Results()
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.inbox:
			s.handle(msg)
		case res := <-controllerResults:
			s.handle(controllerResultMsg{res})
		}
	}
}

// Stop halts the run loop. It does not flush or fail queued requests; call
// OnAvailabilityChange(false) first if queued requests should be failed out.
func (s *Scheduler) Stop() {
	close(s.done)
}

func (s *Scheduler) post(msg message) {
	select {
	case s.inbox <- msg:
	case <-s.done:
	}
}

// OnAvailabilityChange is wired as the availability.Monitor's onEnable and
// onDisable callbacks.
func (s *Scheduler) OnAvailabilityChange(available bool) {
	s.post(availabilityMsg{available: available})
}

// Submit implements spec.md section 4.4 `submit`. Validation failures are
// returned synchronously; every other outcome is delivered on callback.
func (s *Scheduler) Submit(
	ws structs.WorkSource,
	livenessToken structs.LivenessToken,
	callingPackage, callingFeature string,
	req *structs.RangingRequest,
	callback structs.ResultCallback,
	privileged bool,
	attribution string,
) error {
	if err := validate(req, callback, livenessToken, s.discovery); err != nil {
		return err
	}

	info := &structs.RequestInfo{
		WorkSource:     ws,
		Liveness:       livenessToken,
		CallingPackage: callingPackage,
		CallingFeature: callingFeature,
		Request:        req,
		Callback:       callback,
		Privileged:     privileged,
		AttributionTag: attribution,
		SubmittedAt:    s.clock.Now(),
	}
	s.post(submitMsg{info: info})
	return nil
}

func validate(req *structs.RangingRequest, callback structs.ResultCallback, token structs.LivenessToken, d discovery.Resolver) error {
	if callback == nil {
		return ErrNilCallback
	}
	if token.String() == "" {
		return ErrNilLiveness
	}
	if req == nil || len(req.Responders) == 0 {
		return ErrEmptyRequest
	}
	for _, r := range req.Responders {
		if r == nil {
			return ErrNilResponder
		}
	}
	if req.HasAwarePeer() && !d.Available() {
		return ErrAwareUnsupported
	}
	return nil
}

// Cancel implements spec.md section 4.4 `cancel`: advisory removal of every
// queued entry whose work source becomes empty once ws is subtracted from
// it. cancel_ranging against an unknown/empty work source is silent, per
// spec.md's Open Questions resolution.
func (s *Scheduler) Cancel(ws structs.WorkSource) {
	s.post(cancelMsg{ws: ws})
}

// onClientDeath is wired as the onDeath callback passed to LivenessWatcher
// at submission time.
func (s *Scheduler) onClientDeath(token structs.LivenessToken) {
	s.post(clientDeathMsg{token: token})
}

// IsAvailable reports the scheduler's current availability, safe to call
// from any goroutine (the transport package's IsAvailable RPC reads it
// directly rather than routing through the inbox, since it is a read of a
// single bool and need not serialize with mutating messages).
func (s *Scheduler) IsAvailable() bool {
	return s.availableSnapshot.Load()
}

// Capabilities returns the Controller's characteristics, delegating to the
// Controller's own concurrency-safety (a hal.CachingController is safe to
// call from any goroutine).
func (s *Scheduler) Capabilities() structs.Capabilities {
	return s.controller.GetCapabilities()
}
