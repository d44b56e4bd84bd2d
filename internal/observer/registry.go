/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package observer holds the wake-handle registry a channel consults
// whenever its state changes. Selectors register a handle on every
// channel they consider a candidate for the duration of one Select
// call, so that any send, receive, or close on that channel wakes
// them for a rescan.
package observer

import "sync"

// Handle is a selector's wake-handle. Wake must not block and must be
// safe to call from any goroutine, including one already holding the
// channel's own lock.
type Handle interface {
	Wake()
}

// Registry is a mutex-guarded multiset of Handles. Its lock is
// intentionally separate from the channel's data lock: a selector
// holds its own private lock while scanning channels, and a channel
// may wake observers while holding its data lock. Registry never
// acquires a channel's data lock and never holds its own lock while
// calling Wake.
type Registry struct {
	mu      sync.Mutex
	handles []Handle
}

// Add registers h as an observer. The same Handle may be added more
// than once (two selectors over the same channel); each call adds a
// distinct entry.
func (r *Registry) Add(h Handle) {
	r.mu.Lock()
	r.handles = append(r.handles, h)
	r.mu.Unlock()
}

// Remove removes one occurrence of h, matched by pointer identity. A
// no-op if h is not registered.
func (r *Registry) Remove(h Handle) {
	r.mu.Lock()
	for i, cur := range r.handles {
		if cur == h {
			last := len(r.handles) - 1
			r.handles[i] = r.handles[last]
			r.handles[last] = nil
			r.handles = r.handles[:last]
			break
		}
	}
	r.mu.Unlock()
}

// Broadcast wakes every currently registered handle. Handles are
// snapshotted under the lock and woken after it is released, so Wake
// implementations that themselves touch the registry cannot deadlock
// against Broadcast's own lock.
func (r *Registry) Broadcast() {
	r.mu.Lock()
	snapshot := make([]Handle, len(r.handles))
	copy(snapshot, r.handles)
	r.mu.Unlock()

	for _, h := range snapshot {
		h.Wake()
	}
}
