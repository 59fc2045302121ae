// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package hal defines the boundary contract to the ranging driver (the
// "Controller" in spec terms). The real driver lives outside this module;
// rttd only depends on this interface and the scheduler never assumes
// anything about how it is implemented.
package hal

import (
	"github.com/hashicorp/rttd/structs"
)

// ControllerResult is one cmd_id's worth of raw driver output: a status
// keyed by MAC, delivered asynchronously on the Results channel.
type ControllerResult struct {
	CmdID   uint32
	Results map[structs.MAC]*RawResult
}

// RawResult is the driver's per-responder outcome before post-processing.
type RawResult struct {
	Success bool

	DistanceMM       int
	DistanceStdDevMM int
	RSSI             int
	AttemptedCount   int
	SuccessCount     int

	Supports11mc bool
	Supports11az bool

	ChannelFreqMHz int
	BandwidthMHz   int

	MinTimeBetweenNTBMeasurementsUS int
	MaxTimeBetweenNTBMeasurementsUS int
	NTBLTFRepetitionCount           int
	SpatialStreamCount              int

	SecureHELTFProtocolVersion int
	SecureRangingSucceeded     bool

	LCIRaw []byte
	LCRRaw []byte

	ComebackCookie []byte
	ComebackDelayUS int
}

// Controller is the out-of-scope ranging driver contract: range_request,
// range_cancel, get_capabilities, plus an asynchronous result channel.
// Exactly one RangeRequest may be outstanding at a time; the scheduler
// enforces this, not the Controller.
type Controller interface {
	// RangeRequest issues cmdID for req. The bool return indicates
	// synchronous acceptance; a false means the driver refused before
	// doing any work and no result will ever arrive for cmdID.
	RangeRequest(cmdID uint32, req *structs.RangingRequest) bool

	// RangeCancel asks the driver to abort cmdID. It never blocks for a
	// result; the scheduler always fails the request itself on the
	// cancel path rather than waiting for the driver to acknowledge.
	RangeCancel(cmdID uint32, macs []structs.MAC)

	// GetCapabilities queries driver features. The scheduler's hal wrapper
	// caches the response; see CachingController.
	GetCapabilities() structs.Capabilities

	// Results returns the channel the driver publishes asynchronous
	// outcomes on. Called once, at construction time, by the scheduler.
	Results() <-chan ControllerResult
}
