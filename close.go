/*
 * Copyright 2025 CloudWeGo Authors
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

package cspchan

// Close is a monotonic, idempotent transition: the first call marks
// the channel closed and wakes every blocked sender, receiver, and
// selector; later calls are no-ops. Broadcast, not Signal, is used on
// every condition variable the channel owns so no waiter is lost.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.observers.Broadcast()
	if c.unbuffered() {
		c.handoff.Broadcast()
		c.chain.Broadcast()
	} else {
		c.notFull.Broadcast()
		c.notEmpty.Broadcast()
	}
}

// Closed reports whether c has been closed. A nil Channel is
// considered closed.
func (c *Channel) Closed() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Destroy closes the channel (if not already closed) and drops its
// references to the ring buffer and the rendezvous slot; the observer
// registry is left as it is. Destroy while another goroutine is
// still inside Send, Receive, or Select on this channel is undefined
// behavior; callers must establish a quiescence barrier, typically
// Close followed by draining or an acknowledgement channel, before
// calling Destroy.
func (c *Channel) Destroy() {
	c.Close()
	c.mu.Lock()
	c.ring = nil
	c.rendezvousSlot = nil
	c.mu.Unlock()
}
