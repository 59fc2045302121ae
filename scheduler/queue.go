// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import "github.com/hashicorp/rttd/structs"

// requestQueue is a FIFO of pending RequestInfo entries; only the head may
// ever be dispatched. It exclusively owns each *structs.RequestInfo once
// enqueued.
type requestQueue struct {
	entries []*structs.RequestInfo
}

func newRequestQueue() *requestQueue {
	return &requestQueue{}
}

func (q *requestQueue) push(r *structs.RequestInfo) {
	q.entries = append(q.entries, r)
}

func (q *requestQueue) head() *structs.RequestInfo {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}

func (q *requestQueue) popHead() {
	if len(q.entries) == 0 {
		return
	}
	q.entries = q.entries[1:]
}

func (q *requestQueue) len() int {
	return len(q.entries)
}

func (q *requestQueue) clear() {
	q.entries = nil
}

func (q *requestQueue) all() []*structs.RequestInfo {
	return q.entries
}

// removeWhere removes every entry for which keep returns false, invoking
// onRemove for each one (in queue order) so the caller can unsubscribe
// liveness / cancel at the controller / deliver a result.
func (q *requestQueue) removeWhere(keep func(*structs.RequestInfo) bool, onRemove func(*structs.RequestInfo)) {
	kept := q.entries[:0:0]
	for _, r := range q.entries {
		if keep(r) {
			kept = append(kept, r)
		} else {
			onRemove(r)
		}
	}
	q.entries = kept
}

// workSources returns the WorkSource of every queued entry, used by the
// spam check.
func (q *requestQueue) workSources() []structs.WorkSource {
	out := make([]structs.WorkSource, len(q.entries))
	for i, r := range q.entries {
		out[i] = r.WorkSource
	}
	return out
}
