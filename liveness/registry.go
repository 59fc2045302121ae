// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package liveness implements scheduler.LivenessWatcher's subscription
// bookkeeping. The actual death detection mechanism (binder death
// recipients, a socket EOF, a heartbeat timeout — whichever IPC transport a
// deployment uses) is out of scope per spec.md's non-goals; callers wire
// that mechanism to Registry.Kill.
package liveness

import (
	"sync"

	"github.com/hashicorp/go-uuid"

	"github.com/hashicorp/rttd/structs"
)

type subscription struct {
	cookie  string
	onDeath func()
}

// Registry implements scheduler.LivenessWatcher: it tracks, per liveness
// token, the set of callbacks to invoke when that token's client dies.
type Registry struct {
	mu   sync.Mutex
	subs map[structs.LivenessToken][]subscription
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{subs: map[structs.LivenessToken][]subscription{}}
}

// Subscribe implements scheduler.LivenessWatcher.
func (r *Registry) Subscribe(token structs.LivenessToken, onDeath func()) func() {
	cookie, err := uuid.GenerateUUID()
	if err != nil {
		panic(err)
	}

	r.mu.Lock()
	r.subs[token] = append(r.subs[token], subscription{cookie: cookie, onDeath: onDeath})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		subs := r.subs[token]
		for i, sub := range subs {
			if sub.cookie == cookie {
				r.subs[token] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Kill invokes and removes every still-subscribed callback for token. Wire
// this to whatever IPC-layer death signal a deployment uses.
func (r *Registry) Kill(token structs.LivenessToken) {
	r.mu.Lock()
	subs := r.subs[token]
	delete(r.subs, token)
	r.mu.Unlock()
	for _, sub := range subs {
		sub.onDeath()
	}
}
