// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package transport implements the upward IPC surface (spec.md section 6's
// "binder-style IPC"): a small gRPC service, RangingService, exposing
// StartRanging/CancelRanging/IsAvailable/GetCharacteristics, with results
// streamed back per liveness token over a server-streaming RPC — the
// closest idiomatic Go analogue to a binder callback interface. There is no
// generated .pb.go here: the wire messages are plain JSON-tagged structs
// carried by a hand-registered encoding.Codec (see codec.go), and the
// service is wired directly as a grpc.ServiceDesc (see service.go). Only
// the server side is implemented; the client contract is out of scope.
package transport

import (
	"fmt"
	"net"

	"github.com/hashicorp/rttd/structs"
)

// WireMAC is a colon-hex MAC address, e.g. "aa:bb:cc:dd:ee:ff".
type WireMAC string

func (w WireMAC) toStructs() (structs.MAC, error) {
	var mac structs.MAC
	if w == "" {
		return mac, nil
	}
	hw, err := net.ParseMAC(string(w))
	if err != nil || len(hw) != 6 {
		return mac, fmt.Errorf("transport: malformed mac %q", w)
	}
	copy(mac[:], hw)
	return mac, nil
}

// WireSecureConfig mirrors structs.SecureConfig.
type WireSecureConfig struct {
	SSID       string `json:"ssid"`
	AKMs       uint32 `json:"akms"`
	Passphrase string `json:"passphrase,omitempty"`
	PASNOnly   bool   `json:"pasn_only,omitempty"`
}

func (w *WireSecureConfig) toStructs() *structs.SecureConfig {
	if w == nil {
		return nil
	}
	return &structs.SecureConfig{
		SSID:       w.SSID,
		AKMs:       structs.AKMMask(w.AKMs),
		Passphrase: w.Passphrase,
		PASNOnly:   w.PASNOnly,
	}
}

// WireResponder mirrors structs.Responder.
type WireResponder struct {
	Type                            int               `json:"type"`
	MAC                             WireMAC           `json:"mac,omitempty"`
	PeerHandle                      string            `json:"peer_handle,omitempty"`
	Supports11mc                    bool              `json:"supports_11mc,omitempty"`
	Supports11az                    bool              `json:"supports_11az,omitempty"`
	ChannelFreqMHz                  int               `json:"channel_freq_mhz,omitempty"`
	BandwidthMHz                    int               `json:"bandwidth_mhz,omitempty"`
	Preamble                        int               `json:"preamble,omitempty"`
	MinTimeBetweenNTBMeasurementsUS int               `json:"min_ntb_us,omitempty"`
	MaxTimeBetweenNTBMeasurementsUS int               `json:"max_ntb_us,omitempty"`
	Secure                          *WireSecureConfig `json:"secure,omitempty"`
}

func (w *WireResponder) toStructs() (*structs.Responder, error) {
	mac, err := w.MAC.toStructs()
	if err != nil {
		return nil, err
	}
	return &structs.Responder{
		Type:                            structs.ResponderType(w.Type),
		MAC:                             mac,
		PeerHandle:                      w.PeerHandle,
		Supports11mc:                    w.Supports11mc,
		Supports11az:                    w.Supports11az,
		ChannelFreqMHz:                  w.ChannelFreqMHz,
		BandwidthMHz:                    w.BandwidthMHz,
		Preamble:                        w.Preamble,
		MinTimeBetweenNTBMeasurementsUS: w.MinTimeBetweenNTBMeasurementsUS,
		MaxTimeBetweenNTBMeasurementsUS: w.MaxTimeBetweenNTBMeasurementsUS,
		Secure:                          w.Secure.toStructs(),
	}, nil
}

// WireRangingRequest mirrors structs.RangingRequest.
type WireRangingRequest struct {
	Responders []*WireResponder  `json:"responders"`
	BurstSize  int               `json:"burst_size,omitempty"`
	Secure     *WireSecureConfig `json:"secure,omitempty"`
}

func (w *WireRangingRequest) toStructs() (*structs.RangingRequest, error) {
	req := &structs.RangingRequest{
		BurstSize: w.BurstSize,
		Secure:    w.Secure.toStructs(),
	}
	for _, wr := range w.Responders {
		r, err := wr.toStructs()
		if err != nil {
			return nil, err
		}
		req.Responders = append(req.Responders, r)
	}
	return req, nil
}

// WireWorkSource mirrors structs.WorkSource: a primary requesting UID plus
// the attribution-chain leaf UIDs billed alongside it.
type WireWorkSource struct {
	SourceUID int64   `json:"source_uid"`
	LeafUIDs  []int64 `json:"leaf_uids,omitempty"`
}

func (w WireWorkSource) toStructs() structs.WorkSource {
	return structs.NewWorkSource(w.SourceUID, w.LeafUIDs...)
}

// StartRangingRequest is the unary request for RangingService.StartRanging.
type StartRangingRequest struct {
	WorkSource     WireWorkSource      `json:"work_source"`
	LivenessToken  string              `json:"liveness_token"`
	CallingPackage string              `json:"calling_package"`
	CallingFeature string              `json:"calling_feature"`
	Privileged     bool                `json:"privileged,omitempty"`
	AttributionTag string              `json:"attribution_tag,omitempty"`
	Request        *WireRangingRequest `json:"request"`
}

// Ack is the unary response for StartRanging and CancelRanging.
type Ack struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// CancelRangingRequest is the unary request for RangingService.CancelRanging.
type CancelRangingRequest struct {
	WorkSource WireWorkSource `json:"work_source"`
}

// Empty carries no fields; used for IsAvailable/GetCharacteristics requests.
type Empty struct{}

// IsAvailableResponse is the unary response for RangingService.IsAvailable.
type IsAvailableResponse struct {
	Available bool `json:"available"`
}

// CharacteristicsResponse mirrors structs.Capabilities.
type CharacteristicsResponse struct {
	SupportsOneSidedRTT            bool `json:"supports_one_sided_rtt"`
	SupportsLCI                    bool `json:"supports_lci"`
	SupportsLCR                    bool `json:"supports_lcr"`
	SupportsStationResponder       bool `json:"supports_station_responder"`
	Supports11azNTBInitiator       bool `json:"supports_11az_ntb_initiator"`
	SupportsSecureHELTF            bool `json:"supports_secure_heltf"`
	SupportsRangingFrameProtection bool `json:"supports_ranging_frame_protection"`
	MaxSupportedSecureHELTFVersion int  `json:"max_supported_secure_heltf_version"`
}

func capabilitiesToWire(c structs.Capabilities) *CharacteristicsResponse {
	return &CharacteristicsResponse{
		SupportsOneSidedRTT:            c.SupportsOneSidedRTT,
		SupportsLCI:                    c.SupportsLCI,
		SupportsLCR:                    c.SupportsLCR,
		SupportsStationResponder:       c.SupportsStationResponder,
		Supports11azNTBInitiator:       c.Supports11azNTBInitiator,
		SupportsSecureHELTF:            c.SupportsSecureHELTF,
		SupportsRangingFrameProtection: c.SupportsRangingFrameProtection,
		MaxSupportedSecureHELTFVersion: c.MaxSupportedSecureHELTFVersion,
	}
}

// WireRangingResult mirrors structs.RangingResult.
type WireRangingResult struct {
	Status            int     `json:"status"`
	Identity          string  `json:"identity"`
	DistanceMM        int     `json:"distance_mm,omitempty"`
	DistanceStdDevMM  int     `json:"distance_std_dev_mm,omitempty"`
	RSSI              int     `json:"rssi,omitempty"`
	AttemptedCount    int     `json:"attempted_count,omitempty"`
	SuccessCount      int     `json:"success_count,omitempty"`
	Supports11mc      bool    `json:"supports_11mc,omitempty"`
	Supports11az      bool    `json:"supports_11az,omitempty"`
	LocationLatitude  float64 `json:"location_latitude,omitempty"`
	LocationLongitude float64 `json:"location_longitude,omitempty"`
	LocationAltitude  float64 `json:"location_altitude,omitempty"`
	LocationParsed    bool    `json:"location_parsed,omitempty"`
}

func resultToWire(r *structs.RangingResult) *WireRangingResult {
	out := &WireRangingResult{
		Status:           int(r.Status),
		Identity:         r.Identity,
		DistanceMM:       r.DistanceMM,
		DistanceStdDevMM: r.DistanceStdDevMM,
		RSSI:             r.RSSI,
		AttemptedCount:   r.AttemptedCount,
		SuccessCount:     r.SuccessCount,
		Supports11mc:     r.Supports11mc,
		Supports11az:     r.Supports11az,
	}
	if r.Location != nil {
		out.LocationLatitude = r.Location.Latitude
		out.LocationLongitude = r.Location.Longitude
		out.LocationAltitude = r.Location.Altitude
		out.LocationParsed = r.Location.Parsed
	}
	return out
}

// ResultBatch is one streamed message on the StreamResults RPC: the
// complete callback payload from a single scheduler result delivery.
type ResultBatch struct {
	Results []*WireRangingResult `json:"results"`
}

func batchToWire(results []*structs.RangingResult) *ResultBatch {
	batch := &ResultBatch{Results: make([]*WireRangingResult, len(results))}
	for i, r := range results {
		batch.Results[i] = resultToWire(r)
	}
	return batch
}

// StreamResultsRequest names the liveness token whose results this stream
// should carry.
type StreamResultsRequest struct {
	LivenessToken string `json:"liveness_token"`
}
