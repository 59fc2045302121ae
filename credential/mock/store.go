// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package mock provides a fake credential.Store for tests.
package mock

import "github.com/hashicorp/rttd/structs"

// Store is an in-memory credential.Store keyed on "ssid|securityType".
type Store struct {
	Passphrases map[string]string
}

// New constructs an empty Store.
func New() *Store {
	return &Store{Passphrases: map[string]string{}}
}

// Lookup implements credential.Store.
func (s *Store) Lookup(ssid string, securityType structs.SecurityType) (string, bool) {
	key := ssid + "|" + securityType.String()
	p, ok := s.Passphrases[key]
	return p, ok
}

// Set registers a passphrase for ssid/securityType, for test setup.
func (s *Store) Set(ssid string, securityType structs.SecurityType, passphrase string) {
	s.Passphrases[ssid+"|"+securityType.String()] = passphrase
}
