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

// bufferedSend blocks until the ring has room or the channel closes.
func (c *Channel) bufferedSend(msg []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	for !c.closed && c.ring.Full() {
		c.notFull.Wait()
	}
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.ring.Push(msg)
	c.mu.Unlock()

	c.observers.Broadcast()
	c.notEmpty.Signal()
}

// bufferedReceive blocks until the ring is non-empty or the channel
// closes. A receive on a closed channel with messages still queued
// drains the oldest queued message rather than zero-filling; only
// once the ring is empty does a closed channel's receive zero-fill.
func (c *Channel) bufferedReceive(out []byte) {
	c.mu.Lock()
	if c.closed && c.ring.Empty() {
		zero(out)
		c.mu.Unlock()
		return
	}
	for !c.closed && c.ring.Empty() {
		c.notEmpty.Wait()
	}
	if c.ring.Empty() {
		// woken by close with nothing queued
		zero(out)
		c.mu.Unlock()
		return
	}
	c.ring.Pop(out)
	c.mu.Unlock()

	c.observers.Broadcast()
	c.notFull.Signal()
}

func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
