// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package postproc

import (
	"encoding/binary"
	"time"

	"github.com/hashicorp/rttd/structs"
)

// parseLocation decodes the driver's raw LCI/LCR byte blobs into a
// ResponderLocation. It reports parsed=false on any malformed input, which
// the caller uses to gate inclusion even for privileged callers (spec.md
// section 4.5 rule 3: "the struct parsed successfully, and the caller was
// privileged").
func parseLocation(lci, lcr []byte) (*structs.ResponderLocation, bool) {
	// Minimal LCI subset: 3 big-endian fixed-point fields (lat, long, alt),
	// each a 4-byte signed fixed-point value scaled by 1e7 for lat/long and
	// 1e2 for altitude. A real driver's LCI parser is considerably more
	// involved (IEEE 802.11-2020 8.4.2.23); this module only needs to
	// expose whether parsing succeeded and the decoded coordinates.
	if len(lci) < 12 {
		return nil, false
	}
	lat := int32(binary.BigEndian.Uint32(lci[0:4]))
	long := int32(binary.BigEndian.Uint32(lci[4:8]))
	alt := int32(binary.BigEndian.Uint32(lci[8:12]))
	return &structs.ResponderLocation{
		Latitude:  float64(lat) / 1e7,
		Longitude: float64(long) / 1e7,
		Altitude:  float64(alt) / 1e2,
		Parsed:    true,
	}, true
}

func microsecondsToDuration(us int) time.Duration {
	return time.Duration(us) * time.Microsecond
}
