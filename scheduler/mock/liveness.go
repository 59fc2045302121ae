// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package mock provides test doubles for scheduler collaborators that have
// no natural home in an existing out-of-scope package.
package mock

import (
	"sync"

	"github.com/hashicorp/go-uuid"

	"github.com/hashicorp/rttd/structs"
)

// subscription is keyed by an opaque, randomly-generated cookie rather than
// a slice index, matching how a real death-recipient registry (e.g.
// Android's IBinder.linkToDeath) hands back an unsubscribe handle that
// stays valid even as other subscribers for the same token come and go.
type subscription struct {
	cookie  string
	onDeath func()
}

// LivenessWatcher is a test double for scheduler.LivenessWatcher. Call
// Kill(token) to simulate client death.
type LivenessWatcher struct {
	mu   sync.Mutex
	subs map[structs.LivenessToken][]subscription
}

// NewLivenessWatcher constructs an empty LivenessWatcher.
func NewLivenessWatcher() *LivenessWatcher {
	return &LivenessWatcher{subs: map[structs.LivenessToken][]subscription{}}
}

// Subscribe implements scheduler.LivenessWatcher.
func (w *LivenessWatcher) Subscribe(token structs.LivenessToken, onDeath func()) func() {
	cookie, err := uuid.GenerateUUID()
	if err != nil {
		// GenerateUUID only fails if the system entropy source itself
		// fails to read, which a test process never hits in practice.
		panic(err)
	}

	w.mu.Lock()
	w.subs[token] = append(w.subs[token], subscription{cookie: cookie, onDeath: onDeath})
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		subs := w.subs[token]
		for i, sub := range subs {
			if sub.cookie == cookie {
				w.subs[token] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Kill invokes every still-subscribed callback for token, simulating death.
func (w *LivenessWatcher) Kill(token structs.LivenessToken) {
	w.mu.Lock()
	subs := append([]subscription(nil), w.subs[token]...)
	w.mu.Unlock()
	for _, sub := range subs {
		sub.onDeath()
	}
}
