// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package credential defines the boundary contract to the pre-shared
// secret store used for secure-ranging configs.
package credential

import "github.com/hashicorp/rttd/structs"

// Store looks up a pre-shared passphrase by translated SSID and security
// type derived from the responder's AKM bitmap.
type Store interface {
	Lookup(translatedSSID string, securityType structs.SecurityType) (passphrase string, found bool)
}

type noopStore struct{}

func (noopStore) Lookup(string, structs.SecurityType) (string, bool) { return "", false }

// NoOp returns a Store that never has a passphrase on file, for deployments
// that have no credential subsystem wired in.
func NoOp() Store { return noopStore{} }
