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

// rendezvous implements the unbuffered handshake barrier, shared by
// Send (isSender=true) and Receive (isSender=false). buf is the
// caller's msgLen-byte message on the sender side, or writable scratch
// on the receiver side.
//
// Observers are broadcast on every phase transition, not only
// Idle -> OneWaiting: a selector sharing this channel with a direct
// Send/Receive caller must also notice the OneWaiting -> HandoffDone
// -> Idle transitions, since those can flip its own readiness test.
// Extra wakeups just cost a spurious scan; a missed one can wedge a
// selector indefinitely.
func (c *Channel) rendezvous(isSender bool, buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.closed {
			if !isSender {
				zero(buf)
			}
			return
		}

		switch c.phase {
		case phaseIdle:
			c.phase = phaseOneWaiting
			c.expectingSender = !isSender
			c.rendezvousSlot = buf
			c.observers.Broadcast()

			for !c.closed && c.phase != phaseHandoffDone {
				c.handoff.Wait()
			}
			closedBeforeHandoff := c.closed && c.phase != phaseHandoffDone
			c.phase = phaseIdle
			c.rendezvousSlot = nil
			if closedBeforeHandoff && !isSender {
				zero(buf)
			}
			c.observers.Broadcast()
			c.chain.Signal()
			return

		case phaseOneWaiting:
			if c.expectingSender != isSender {
				c.chain.Wait()
				continue
			}
			if isSender {
				copy(c.rendezvousSlot, buf)
			} else {
				copy(buf, c.rendezvousSlot)
			}
			c.phase = phaseHandoffDone
			c.observers.Broadcast()
			c.handoff.Signal()
			return

		case phaseHandoffDone:
			c.chain.Wait()
		}
	}
}
