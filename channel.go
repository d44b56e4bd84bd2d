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

import (
	"sync"

	"github.com/cloudwego/cspchan/internal/observer"
	"github.com/cloudwego/cspchan/internal/ringbuf"
)

// barrierPhase is the unbuffered-mode rendezvous handshake state.
type barrierPhase int

const (
	phaseIdle barrierPhase = iota
	phaseOneWaiting
	phaseHandoffDone
)

// Channel is an opaque handle exchanging msgLen-byte messages between
// goroutines. A Channel created with capacity 0 is a rendezvous
// channel: Send and Receive block until a peer of the opposite
// polarity is present. A Channel created with capacity > 0 is a
// bounded FIFO: Send blocks only while the ring is full, Receive only
// while it is empty.
//
// The zero Channel is not usable; construct one with New.
type Channel struct {
	msgLen   int
	capacity int

	mu     sync.Mutex
	closed bool

	// buffered mode (capacity > 0)
	ring     *ringbuf.Ring
	notFull  *sync.Cond
	notEmpty *sync.Cond

	// rendezvous mode (capacity == 0)
	phase           barrierPhase
	rendezvousSlot  []byte
	expectingSender bool
	handoff         *sync.Cond
	chain           *sync.Cond

	observers observer.Registry
}

// New creates a Channel. capacity == 0 selects rendezvous mode;
// capacity > 0 selects buffered FIFO mode of that depth. msgLen is the
// fixed width, in bytes, of every message exchanged on the channel.
func New(capacity, msgLen int) (*Channel, error) {
	if capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	if msgLen < 1 {
		return nil, ErrInvalidMsgLen
	}

	ch := &Channel{msgLen: msgLen, capacity: capacity}
	if capacity > 0 {
		ch.ring = ringbuf.New(capacity, msgLen)
		ch.notFull = sync.NewCond(&ch.mu)
		ch.notEmpty = sync.NewCond(&ch.mu)
	} else {
		ch.handoff = sync.NewCond(&ch.mu)
		ch.chain = sync.NewCond(&ch.mu)
	}
	return ch, nil
}

// MsgLen returns the fixed message width this channel was created
// with.
func (c *Channel) MsgLen() int { return c.msgLen }

// Capacity returns the channel's buffered depth, or 0 for a
// rendezvous channel.
func (c *Channel) Capacity() int { return c.capacity }

// unbuffered reports whether c is a rendezvous channel.
func (c *Channel) unbuffered() bool { return c.capacity == 0 }

func (c *Channel) checkMsgLen(buf []byte) {
	if len(buf) != c.msgLen {
		panic("cspchan: buffer length does not match channel msgLen")
	}
}

// Send blocks until msg is accepted by the channel or the channel
// closes. Sending on an already-closed channel is a silent no-op
// rather than a panic. len(msg) must equal MsgLen(); a mismatch
// panics.
func (c *Channel) Send(msg []byte) {
	c.checkMsgLen(msg)
	if c.unbuffered() {
		c.rendezvous(true, msg)
		return
	}
	c.bufferedSend(msg)
}

// Receive blocks until a message is available or the channel closes.
// On a closed channel with no buffered messages remaining (or any
// closed rendezvous channel), out is zero-filled and Receive returns
// immediately. len(out) must equal MsgLen(); a mismatch panics.
func (c *Channel) Receive(out []byte) {
	c.checkMsgLen(out)
	if c.unbuffered() {
		c.rendezvous(false, out)
		return
	}
	c.bufferedReceive(out)
}
