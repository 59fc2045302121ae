// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package postproc implements the Result Post-processor: it pairs Controller
// results with original responders, fills in failures for missing peers,
// strips location-sensitive fields from unprivileged callers, and reports
// identity by peer handle when one was present on the request.
package postproc

import (
	"net"

	"github.com/hashicorp/rttd/hal"
	"github.com/hashicorp/rttd/structs"
)

// Process implements spec.md section 4.5. req is the original request (with
// any peer-handle substitution already applied); raw is the Controller's
// per-MAC output; privileged is the caller's privilege at submission time.
// The returned slice has exactly len(req.Responders) entries, in request
// order.
func Process(req *structs.RangingRequest, raw map[structs.MAC]*hal.RawResult, privileged bool) []*structs.RangingResult {
	out := make([]*structs.RangingResult, 0, len(req.Responders))
	for _, resp := range req.Responders {
		out = append(out, processOne(resp, raw[resp.MAC], privileged))
	}
	return out
}

func processOne(resp *structs.Responder, raw *hal.RawResult, privileged bool) *structs.RangingResult {
	identity := Identity(resp)
	if raw == nil || !raw.Success {
		return &structs.RangingResult{
			Status:   structs.StatusFail,
			Identity: identity,
		}
	}

	result := &structs.RangingResult{
		Status:   structs.StatusSuccess,
		Identity: identity,

		DistanceMM:       raw.DistanceMM,
		DistanceStdDevMM: raw.DistanceStdDevMM,
		RSSI:             raw.RSSI,
		AttemptedCount:   raw.AttemptedCount,
		SuccessCount:     raw.SuccessCount,

		Supports11mc: raw.Supports11mc,
		Supports11az: raw.Supports11az,

		ChannelFreqMHz: raw.ChannelFreqMHz,
		BandwidthMHz:   raw.BandwidthMHz,

		MinTimeBetweenNTBMeasurementsUS: raw.MinTimeBetweenNTBMeasurementsUS,
		MaxTimeBetweenNTBMeasurementsUS: raw.MaxTimeBetweenNTBMeasurementsUS,
		NTBLTFRepetitionCount:           raw.NTBLTFRepetitionCount,
		SpatialStreamCount:              raw.SpatialStreamCount,

		SecureHELTFProtocolVersion: raw.SecureHELTFProtocolVersion,
		SecureRangingSucceeded:     raw.SecureRangingSucceeded,
	}

	if privileged {
		loc, parsed := parseLocation(raw.LCIRaw, raw.LCRRaw)
		if parsed {
			result.LCI = raw.LCIRaw
			result.LCR = raw.LCRRaw
			result.Location = loc
		}
	}

	if len(raw.ComebackCookie) > 0 {
		result.ComebackCookie = raw.ComebackCookie
		result.ComebackDelay = microsecondsToDuration(raw.ComebackDelayUS)
	}

	return result
}

// Identity returns the peer handle if present, else the MAC, matching the
// round-trip law: identity == peer_handle ?? mac. Exported so the scheduler
// can build identity-tagged failure results without a Controller result to
// pair against.
func Identity(resp *structs.Responder) string {
	if resp.HasPeerHandle() {
		return resp.PeerHandle
	}
	return macString(resp.MAC)
}

func macString(mac structs.MAC) string {
	return net.HardwareAddr(mac[:]).String()
}
