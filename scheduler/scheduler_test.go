// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/shoenig/test/must"

	credmock "github.com/hashicorp/rttd/credential/mock"
	discmock "github.com/hashicorp/rttd/discovery/mock"
	"github.com/hashicorp/rttd/hal"
	halmock "github.com/hashicorp/rttd/hal/mock"
	"github.com/hashicorp/rttd/internal/ci"
	"github.com/hashicorp/rttd/internal/testlog"
	schedmock "github.com/hashicorp/rttd/scheduler/mock"
	"github.com/hashicorp/rttd/structs"
	"github.com/hashicorp/rttd/throttle"
)

// fakeTimer is a TimerHandle double that can be fired by hand from a test.
type fakeTimer struct {
	mu      sync.Mutex
	stopped bool
	fn      func()
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.stopped
	t.stopped = true
	return !was
}

// fakeClock implements both scheduler.Clock and libtime.Clock (structurally,
// since the latter only needs Now) so a single instance can back both the
// scheduler's timeout timer and the throttle policy's gap math in tests.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) TimerHandle {
	t := &fakeTimer{fn: f}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	return t
}

// fireLatest fires the most recently armed, not-yet-stopped timer, as the
// single outstanding HAL timeout always is in these tests.
func (c *fakeClock) fireLatest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.timers) - 1; i >= 0; i-- {
		if !c.timers[i].stopped {
			c.timers[i].fn()
			return
		}
	}
}

// autoSucceedController accepts every RangeRequest and asynchronously
// delivers a success result for every responder that carries a MAC.
func autoSucceedController() *halmock.Controller {
	c := halmock.New()
	c.RangeRequestFn = func(cmdID uint32, req *structs.RangingRequest) bool {
		go func() {
			results := map[structs.MAC]*hal.RawResult{}
			for _, r := range req.Responders {
				if !r.MAC.IsZero() {
					results[r.MAC] = &hal.RawResult{Success: true}
				}
			}
			c.Deliver(hal.ControllerResult{CmdID: cmdID, Results: results})
		}()
		return true
	}
	return c
}

type testHarness struct {
	sched    *Scheduler
	clock    *fakeClock
	ctrl     *halmock.Controller
	disc     *discmock.Resolver
	liveness *schedmock.LivenessWatcher
	cred     *credmock.Store
	policy   *throttle.Policy
}

func newHarness(t *testing.T, ctrl *halmock.Controller, clock *fakeClock, policy *throttle.Policy) *testHarness {
	t.Helper()
	if clock == nil {
		clock = newFakeClock()
	}
	if policy == nil {
		policy = throttle.New(clock, 0, nil, func(int64) bool { return false })
	}
	disc := discmock.NewAvailable()
	liveness := schedmock.NewLivenessWatcher()
	cred := credmock.New()

	sched := New(Config{
		Logger:     testlog.HCLogger(t),
		Clock:      clock,
		Controller: ctrl,
		Discovery:  disc,
		Throttle:   policy,
		Liveness:   liveness,
		Credential: cred,
	})
	go sched.Run()
	t.Cleanup(sched.Stop)
	sched.OnAvailabilityChange(true)

	return &testHarness{sched: sched, clock: clock, ctrl: ctrl, disc: disc, liveness: liveness, cred: cred, policy: policy}
}

func apRequest(macs ...structs.MAC) *structs.RangingRequest {
	req := &structs.RangingRequest{}
	for _, mac := range macs {
		req.Responders = append(req.Responders, &structs.Responder{Type: structs.ResponderAP, MAC: mac})
	}
	return req
}

func waitResults(t *testing.T, ch <-chan []*structs.RangingResult) []*structs.RangingResult {
	t.Helper()
	select {
	case results := <-ch:
		return results
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for scheduler callback")
		return nil
	}
}

func TestScheduler_HappyPath(t *testing.T) {
	ci.Parallel(t)

	h := newHarness(t, autoSucceedController(), nil, nil)
	mac := structs.MAC{1, 2, 3, 4, 5, 6}
	ch := make(chan []*structs.RangingResult, 1)

	err := h.sched.Submit(structs.NewWorkSource(1), structs.NewLivenessToken("c1"), "com.test", "feature",
		apRequest(mac), func(r []*structs.RangingResult) { ch <- r }, false, "")
	must.NoError(t, err)

	results := waitResults(t, ch)
	must.Len(t, 1, results)
	must.Eq(t, structs.StatusSuccess, results[0].Status)
}

func TestScheduler_PartialMiss(t *testing.T) {
	ci.Parallel(t)

	ctrl := halmock.New()
	macA := structs.MAC{1, 1, 1, 1, 1, 1}
	macB := structs.MAC{2, 2, 2, 2, 2, 2}
	ctrl.RangeRequestFn = func(cmdID uint32, req *structs.RangingRequest) bool {
		go ctrl.Deliver(hal.ControllerResult{
			CmdID: cmdID,
			Results: map[structs.MAC]*hal.RawResult{
				macA: {Success: true},
				// macB intentionally has no entry: simulates a driver miss.
			},
		})
		return true
	}
	h := newHarness(t, ctrl, nil, nil)
	ch := make(chan []*structs.RangingResult, 1)

	err := h.sched.Submit(structs.NewWorkSource(1), structs.NewLivenessToken("c1"), "com.test", "feature",
		apRequest(macA, macB), func(r []*structs.RangingResult) { ch <- r }, false, "")
	must.NoError(t, err)

	results := waitResults(t, ch)
	must.Len(t, 2, results)
	must.Eq(t, structs.StatusSuccess, results[0].Status)
	must.Eq(t, structs.StatusFail, results[1].Status)
}

func TestScheduler_PeerHandleDeferral(t *testing.T) {
	ci.Parallel(t)

	h := newHarness(t, autoSucceedController(), nil, nil)
	h.disc.Async = true
	mac := structs.MAC{9, 9, 9, 9, 9, 9}
	h.disc.Mapping["peer-1"] = mac

	ch := make(chan []*structs.RangingResult, 1)
	req := &structs.RangingRequest{Responders: []*structs.Responder{
		{Type: structs.ResponderAware, PeerHandle: "peer-1"},
	}}

	err := h.sched.Submit(structs.NewWorkSource(1), structs.NewLivenessToken("c1"), "com.test", "feature",
		req, func(r []*structs.RangingResult) { ch <- r }, false, "")
	must.NoError(t, err)

	select {
	case <-ch:
		t.Fatal("callback fired before discovery resolution completed")
	case <-time.After(50 * time.Millisecond):
	}

	h.disc.Flush()

	results := waitResults(t, ch)
	must.Len(t, 1, results)
	must.Eq(t, structs.StatusSuccess, results[0].Status)
	must.Eq(t, "peer-1", results[0].Identity)
}

func TestScheduler_SpamRejection(t *testing.T) {
	ci.Parallel(t)

	// Never deliver a result, so the head stays dispatched and every other
	// submission sits queued, saturating the per-UID cap.
	ctrl := halmock.New()
	ctrl.RangeRequestFn = func(cmdID uint32, req *structs.RangingRequest) bool { return true }
	h := newHarness(t, ctrl, nil, nil)

	ws := structs.NewWorkSource(500)
	for i := 0; i < throttle.MaxQueuedPerUID; i++ {
		err := h.sched.Submit(ws, structs.NewLivenessToken(itoaTest(i)), "com.test", "feature",
			apRequest(structs.MAC{byte(i), 0, 0, 0, 0, 1}), func([]*structs.RangingResult) {}, false, "")
		must.NoError(t, err)
	}

	ch := make(chan []*structs.RangingResult, 1)
	err := h.sched.Submit(ws, structs.NewLivenessToken("overflow"), "com.test", "feature",
		apRequest(structs.MAC{99, 0, 0, 0, 0, 1}), func(r []*structs.RangingResult) { ch <- r }, false, "")
	must.NoError(t, err)

	results := waitResults(t, ch)
	must.Len(t, 1, results)
	must.Eq(t, structs.StatusFail, results[0].Status)
}

func TestScheduler_BackgroundThrottleWithExemption(t *testing.T) {
	ci.Parallel(t)

	t.Run("background UID second request within gap fails", func(t *testing.T) {
		clock := newFakeClock()
		policy := throttle.New(clock, 1_800_000, nil, func(int64) bool { return false })
		h := newHarness(t, autoSucceedController(), clock, policy)

		ws := structs.NewWorkSource(2000)
		firstCh := make(chan []*structs.RangingResult, 1)
		err := h.sched.Submit(ws, structs.NewLivenessToken("c1"), "com.other", "feature",
			apRequest(structs.MAC{1, 0, 0, 0, 0, 1}), func(r []*structs.RangingResult) { firstCh <- r }, false, "")
		must.NoError(t, err)
		first := waitResults(t, firstCh)
		must.Eq(t, structs.StatusSuccess, first[0].Status)

		secondCh := make(chan []*structs.RangingResult, 1)
		err = h.sched.Submit(ws, structs.NewLivenessToken("c2"), "com.other", "feature",
			apRequest(structs.MAC{2, 0, 0, 0, 0, 1}), func(r []*structs.RangingResult) { secondCh <- r }, false, "")
		must.NoError(t, err)
		second := waitResults(t, secondCh)
		must.Eq(t, structs.StatusFail, second[0].Status)
	})

	t.Run("exempt package always dispatches", func(t *testing.T) {
		clock := newFakeClock()
		policy := throttle.New(clock, 1_800_000, []string{"com.exempt"}, func(int64) bool { return false })
		h := newHarness(t, autoSucceedController(), clock, policy)

		ws := structs.NewWorkSource(2001)
		for i := 0; i < 2; i++ {
			ch := make(chan []*structs.RangingResult, 1)
			err := h.sched.Submit(ws, structs.NewLivenessToken(itoaTest(i)), "com.exempt", "feature",
				apRequest(structs.MAC{byte(i), 1, 0, 0, 0, 1}), func(r []*structs.RangingResult) { ch <- r }, false, "")
			must.NoError(t, err)
			results := waitResults(t, ch)
			must.Eq(t, structs.StatusSuccess, results[0].Status)
		}
	})
}

func TestScheduler_ClientDeathMidFlight(t *testing.T) {
	ci.Parallel(t)

	ctrl := halmock.New()
	ctrl.RangeRequestFn = func(cmdID uint32, req *structs.RangingRequest) bool { return true }
	h := newHarness(t, ctrl, nil, nil)

	token := structs.NewLivenessToken("doomed-client")
	ch := make(chan []*structs.RangingResult, 1)
	err := h.sched.Submit(structs.NewWorkSource(1), token, "com.test", "feature",
		apRequest(structs.MAC{1, 2, 3, 4, 5, 6}), func(r []*structs.RangingResult) { ch <- r }, false, "")
	must.NoError(t, err)

	// Wait briefly for dispatch so Kill races after RangeRequest has gone
	// out, matching the "mid-flight" scenario.
	time.Sleep(20 * time.Millisecond)
	h.liveness.Kill(token)

	results := waitResults(t, ch)
	must.Len(t, 1, results)
	must.Eq(t, structs.StatusFail, results[0].Status)
	must.SliceLen(t, 1, ctrl.CancelledCmdIDs())
}

func TestScheduler_Cancel_NonDispatchedEntryIsSilent(t *testing.T) {
	ci.Parallel(t)

	// The head never completes, so the second submission stays queued and
	// undispatched.
	ctrl := halmock.New()
	ctrl.RangeRequestFn = func(cmdID uint32, req *structs.RangingRequest) bool { return true }
	h := newHarness(t, ctrl, nil, nil)

	err := h.sched.Submit(structs.NewWorkSource(1), structs.NewLivenessToken("c1"), "com.test", "feature",
		apRequest(structs.MAC{1, 0, 0, 0, 0, 1}), func([]*structs.RangingResult) {}, false, "")
	must.NoError(t, err)

	secondWS := structs.NewWorkSource(2)
	called := false
	err = h.sched.Submit(secondWS, structs.NewLivenessToken("c2"), "com.test", "feature",
		apRequest(structs.MAC{2, 0, 0, 0, 0, 1}), func([]*structs.RangingResult) { called = true }, false, "")
	must.NoError(t, err)

	h.sched.Cancel(secondWS)
	time.Sleep(20 * time.Millisecond)
	must.False(t, called, must.Sprint("a non-dispatched cancelled entry must not invoke its callback"))
}

func TestScheduler_Timeout(t *testing.T) {
	ci.Parallel(t)

	// Accept the request but never deliver a Controller result; the armed
	// timer is fired by hand to simulate HAL timeout.
	ctrl := halmock.New()
	ctrl.RangeRequestFn = func(cmdID uint32, req *structs.RangingRequest) bool { return true }
	h := newHarness(t, ctrl, nil, nil)

	ch := make(chan []*structs.RangingResult, 1)
	err := h.sched.Submit(structs.NewWorkSource(1), structs.NewLivenessToken("c1"), "com.test", "feature",
		apRequest(structs.MAC{1, 2, 3, 4, 5, 6}), func(r []*structs.RangingResult) { ch <- r }, false, "")
	must.NoError(t, err)

	// Give tryDispatch a moment to arm the timer before firing it.
	time.Sleep(20 * time.Millisecond)
	h.clock.fireLatest()

	results := waitResults(t, ch)
	must.Len(t, 1, results)
	must.Eq(t, structs.StatusFail, results[0].Status)
}

func TestScheduler_Unavailable_FailsViaCallback(t *testing.T) {
	ci.Parallel(t)

	h := newHarness(t, autoSucceedController(), nil, nil)
	h.sched.OnAvailabilityChange(false)
	time.Sleep(10 * time.Millisecond)

	ch := make(chan []*structs.RangingResult, 1)
	err := h.sched.Submit(structs.NewWorkSource(1), structs.NewLivenessToken("c1"), "com.test", "feature",
		apRequest(structs.MAC{1, 2, 3, 4, 5, 6}), func(r []*structs.RangingResult) { ch <- r }, false, "")
	must.NoError(t, err)

	results := waitResults(t, ch)
	must.Eq(t, structs.StatusNotAvailable, results[0].Status)
}

func itoaTest(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}
