// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/rttd/internal/ci"
)

func TestSecurityTypeFromAKM(t *testing.T) {
	ci.Parallel(t)

	cases := []struct {
		name string
		mask AKMMask
		want SecurityType
	}{
		{"zero is open", 0, SecurityOpen},
		{"pasn only is open", AKMPASN, SecurityOpen},
		{"sae wins over ft-psk", AKMSAE | AKMFTPSK, SecuritySAE},
		{"ft-psk alone", AKMFTPSK, SecurityPSK},
		{"eap alone", AKMEAP, SecurityEAP},
		{"sae wins over everything", AKMSAE | AKMFTPSK | AKMEAP, SecuritySAE},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SecurityTypeFromAKM(tc.mask))
		})
	}
}

func TestWorkSource_AllUIDs(t *testing.T) {
	ci.Parallel(t)

	ws := NewWorkSource(100, 200, 300)
	require.ElementsMatch(t, []int64{100, 200, 300}, ws.AllUIDs())
}

func TestWorkSource_Subtract(t *testing.T) {
	ci.Parallel(t)

	ws := NewWorkSource(100, 200, 300)
	remaining := ws.Subtract(NewWorkSource(200))
	require.ElementsMatch(t, []int64{100, 300}, remaining.AllUIDs())
	require.False(t, remaining.Empty())

	fullySubtracted := remaining.Subtract(NewWorkSource(100, 300))
	require.True(t, fullySubtracted.Empty())
}

func TestWorkSource_Subtract_UnrelatedUIDNoOp(t *testing.T) {
	ci.Parallel(t)

	ws := NewWorkSource(100)
	remaining := ws.Subtract(NewWorkSource(999))
	require.ElementsMatch(t, []int64{100}, remaining.AllUIDs())
}

func TestResponder_NeedsResolution(t *testing.T) {
	ci.Parallel(t)

	r := &Responder{Type: ResponderAware, PeerHandle: "peer-1"}
	require.True(t, r.NeedsResolution())

	r.MAC = MAC{1, 2, 3, 4, 5, 6}
	require.False(t, r.NeedsResolution())

	r2 := &Responder{Type: ResponderAP}
	require.False(t, r2.NeedsResolution())
}

func TestRangingRequest_HasAwarePeer(t *testing.T) {
	ci.Parallel(t)

	req := &RangingRequest{Responders: []*Responder{{Type: ResponderAP}}}
	require.False(t, req.HasAwarePeer())

	req.Responders = append(req.Responders, &Responder{Type: ResponderAware})
	require.True(t, req.HasAwarePeer())
}

func TestMAC_IsZero(t *testing.T) {
	ci.Parallel(t)

	var mac MAC
	require.True(t, mac.IsZero())

	mac[0] = 1
	require.False(t, mac.IsZero())
}

func TestStatusCode_String(t *testing.T) {
	ci.Parallel(t)

	require.Equal(t, "success", StatusSuccess.String())
	require.Equal(t, "fail", StatusFail.String())
	require.Equal(t, "not_available", StatusNotAvailable.String())
	require.Equal(t, "location_permission_missing", StatusLocationPermissionMissing.String())
	require.Equal(t, "unknown", StatusCode(99).String())
}

func TestLivenessToken_String(t *testing.T) {
	ci.Parallel(t)

	tok := NewLivenessToken("abc-123")
	require.Equal(t, "abc-123", tok.String())
}
