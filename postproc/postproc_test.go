// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package postproc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/rttd/hal"
	"github.com/hashicorp/rttd/internal/ci"
	"github.com/hashicorp/rttd/structs"
)

func TestProcess_MissingResultIsFailure(t *testing.T) {
	ci.Parallel(t)

	req := &structs.RangingRequest{
		Responders: []*structs.Responder{
			{Type: structs.ResponderAP, MAC: structs.MAC{1, 2, 3, 4, 5, 6}},
		},
	}
	out := Process(req, map[structs.MAC]*hal.RawResult{}, false)
	require.Len(t, out, 1)
	require.Equal(t, structs.StatusFail, out[0].Status)
	require.Equal(t, "01:02:03:04:05:06", out[0].Identity)
}

func TestProcess_SuccessCarriesFields(t *testing.T) {
	ci.Parallel(t)

	mac := structs.MAC{1, 2, 3, 4, 5, 6}
	req := &structs.RangingRequest{
		Responders: []*structs.Responder{{Type: structs.ResponderAP, MAC: mac}},
	}
	raw := map[structs.MAC]*hal.RawResult{
		mac: {Success: true, DistanceMM: 1500, RSSI: -40},
	}
	out := Process(req, raw, false)
	require.Len(t, out, 1)
	require.Equal(t, structs.StatusSuccess, out[0].Status)
	require.Equal(t, 1500, out[0].DistanceMM)
	require.Equal(t, -40, out[0].RSSI)
}

func TestProcess_UnprivilegedStripsLocation(t *testing.T) {
	ci.Parallel(t)

	mac := structs.MAC{1, 2, 3, 4, 5, 6}
	req := &structs.RangingRequest{
		Responders: []*structs.Responder{{Type: structs.ResponderAP, MAC: mac}},
	}
	lci := make([]byte, 12)
	raw := map[structs.MAC]*hal.RawResult{
		mac: {Success: true, LCIRaw: lci, LCRRaw: []byte{1}},
	}

	unprivileged := Process(req, raw, false)
	require.Nil(t, unprivileged[0].Location)

	privileged := Process(req, raw, true)
	require.NotNil(t, privileged[0].Location)
	require.True(t, privileged[0].Location.Parsed)
}

func TestProcess_MalformedLocationNeverIncludedEvenPrivileged(t *testing.T) {
	ci.Parallel(t)

	mac := structs.MAC{1, 2, 3, 4, 5, 6}
	req := &structs.RangingRequest{
		Responders: []*structs.Responder{{Type: structs.ResponderAP, MAC: mac}},
	}
	raw := map[structs.MAC]*hal.RawResult{
		mac: {Success: true, LCIRaw: []byte{1, 2, 3}},
	}
	out := Process(req, raw, true)
	require.Nil(t, out[0].Location)
}

func TestIdentity_PrefersPeerHandle(t *testing.T) {
	ci.Parallel(t)

	r := &structs.Responder{Type: structs.ResponderAware, PeerHandle: "peer-9", MAC: structs.MAC{1, 2, 3, 4, 5, 6}}
	require.Equal(t, "peer-9", Identity(r))

	r2 := &structs.Responder{Type: structs.ResponderAP, MAC: structs.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}}
	require.Equal(t, "aa:bb:cc:dd:ee:ff", Identity(r2))
}

func TestProcess_PreservesComebackCookie(t *testing.T) {
	ci.Parallel(t)

	mac := structs.MAC{1, 2, 3, 4, 5, 6}
	req := &structs.RangingRequest{
		Responders: []*structs.Responder{{Type: structs.ResponderAP, MAC: mac}},
	}
	raw := map[structs.MAC]*hal.RawResult{
		mac: {Success: true, ComebackCookie: []byte{9, 9}, ComebackDelayUS: 2000},
	}
	out := Process(req, raw, false)
	require.Equal(t, []byte{9, 9}, out[0].ComebackCookie)
	require.Equal(t, 2000*time.Microsecond, out[0].ComebackDelay)
}
