// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package throttle implements the two spam/fairness predicates the
// scheduler evaluates at submission and at dispatch: a per-UID in-queue
// cap, and a background-process minimum execution gap with a package-name
// exemption list. Modeled on Nomad's
// client/allocrunner/taskrunner/restarts.RestartTracker: a small policy
// object wrapping an injected clock so gap math is deterministic in tests.
package throttle

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"oss.indeed.com/go/libtime"

	"github.com/hashicorp/rttd/structs"
)

// MaxQueuedPerUID is the fixed per-requester in-queue cap from spec.md
// section 4.2.
const MaxQueuedPerUID = 20

// requesterRecordCacheSize bounds the LRU of last-execution timestamps so a
// long-lived daemon observing many distinct UIDs over its lifetime does not
// grow this cache unboundedly. Evicting the least-recently-dispatched UID
// only ever makes the background-gap check more permissive for that UID,
// never less — acceptable because the gap exists to protect the radio from
// a currently-active UID, not from one unseen in a very long time.
const requesterRecordCacheSize = 4096

// IsForegroundFunc reports whether a UID currently has at least
// foreground-service importance.
type IsForegroundFunc func(uid int64) bool

// Policy evaluates the spam and background-gap predicates. The two overlay
// knobs (backgroundExecGapMS, exemptPackages) are read from the dispatch
// path and written from the debug shell's `set` command, so both are
// guarded independently of the rest of Policy's otherwise single-goroutine
// usage.
type Policy struct {
	clock               libtime.Clock
	backgroundExecGapMS atomic.Int64

	exemptMu       sync.RWMutex
	exemptPackages map[string]struct{}

	isForeground IsForegroundFunc
	records      *lru.Cache[int64, structs.RequesterRecord]
}

// New constructs a Policy. backgroundExecGapMS and exemptPackages come from
// the config overlay (spec.md section 6); isForeground is injected per
// spec.md's design notes ("dynamic reflection on importance levels ...
// expressed as a predicate injected at construction").
func New(clock libtime.Clock, backgroundExecGapMS int64, exemptPackages []string, isForeground IsForegroundFunc) *Policy {
	exempt := make(map[string]struct{}, len(exemptPackages))
	for _, pkg := range exemptPackages {
		exempt[pkg] = struct{}{}
	}
	records, err := lru.New[int64, structs.RequesterRecord](requesterRecordCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// requesterRecordCacheSize never is.
		panic(err)
	}
	p := &Policy{
		clock:          clock,
		exemptPackages: exempt,
		isForeground:   isForeground,
		records:        records,
	}
	p.backgroundExecGapMS.Store(backgroundExecGapMS)
	return p
}

// SetBackgroundExecGapMS updates the background execution gap live, for the
// debug shell's `set background_exec_gap_ms <value>`.
func (p *Policy) SetBackgroundExecGapMS(ms int64) {
	p.backgroundExecGapMS.Store(ms)
}

// BackgroundExecGapMS returns the current background execution gap, for the
// debug shell's `get background_exec_gap_ms`.
func (p *Policy) BackgroundExecGapMS() int64 {
	return p.backgroundExecGapMS.Load()
}

// SetExemptPackages replaces the background-throttle exemption list live,
// for the debug shell's `set background_rtt_throttle_exception_list <csv>`.
func (p *Policy) SetExemptPackages(pkgs []string) {
	exempt := make(map[string]struct{}, len(pkgs))
	for _, pkg := range pkgs {
		exempt[pkg] = struct{}{}
	}
	p.exemptMu.Lock()
	p.exemptPackages = exempt
	p.exemptMu.Unlock()
}

// ExemptPackages returns the current exemption list, for the debug shell's
// `get background_rtt_throttle_exception_list`.
func (p *Policy) ExemptPackages() []string {
	p.exemptMu.RLock()
	defer p.exemptMu.RUnlock()
	out := make([]string, 0, len(p.exemptPackages))
	for pkg := range p.exemptPackages {
		out = append(out, pkg)
	}
	return out
}

// AllowSubmit implements the spam check (spec.md section 4.2): reject a
// submission only if every UID named by ws already has at least
// MaxQueuedPerUID entries in queued.
func AllowSubmit(queued []structs.WorkSource, ws structs.WorkSource) bool {
	counts := make(map[int64]int)
	for _, q := range queued {
		for _, uid := range q.AllUIDs() {
			counts[uid]++
		}
	}
	for _, uid := range ws.AllUIDs() {
		if counts[uid] < MaxQueuedPerUID {
			return true
		}
	}
	return len(ws.AllUIDs()) == 0
}

// AllowDispatch implements the background-gap check (spec.md section 4.2).
// On permit, it stamps every UID named by ws with the current time. The
// caller supplies callingPackage because exemption is keyed on the
// submitting package name, not on any UID.
func (p *Policy) AllowDispatch(ws structs.WorkSource, callingPackage string) bool {
	if p.anyForeground(ws) {
		return true
	}
	p.exemptMu.RLock()
	_, exempt := p.exemptPackages[callingPackage]
	p.exemptMu.RUnlock()
	if exempt {
		return true
	}
	if !p.anyUIDClearOfGap(ws) {
		return false
	}
	p.stamp(ws)
	return true
}

func (p *Policy) anyForeground(ws structs.WorkSource) bool {
	for _, uid := range ws.AllUIDs() {
		if p.isForeground(uid) {
			return true
		}
	}
	return false
}

func (p *Policy) anyUIDClearOfGap(ws structs.WorkSource) bool {
	now := p.clock.Now()
	gap := time.Duration(p.backgroundExecGapMS.Load()) * time.Millisecond
	for _, uid := range ws.AllUIDs() {
		record, ok := p.records.Get(uid)
		if !ok {
			return true
		}
		if now.Sub(record.LastExecution) >= gap {
			return true
		}
	}
	return false
}

func (p *Policy) stamp(ws structs.WorkSource) {
	now := p.clock.Now()
	for _, uid := range ws.AllUIDs() {
		p.records.Add(uid, structs.RequesterRecord{LastExecution: now})
	}
}
