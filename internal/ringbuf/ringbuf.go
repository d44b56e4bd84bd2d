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

// Package ringbuf implements the fixed-width message ring used by
// buffered channels. It is pure data: callers must serialize access
// themselves, same as the channel that owns it does.
package ringbuf

import "github.com/bytedance/gopkg/lang/dirtmake"

// Ring is a fixed-capacity FIFO of msgLen-wide byte slots, backed by
// one allocation. It is GC friendly in the same sense as
// container/ring.Ring: no per-slot pointer, no per-push allocation.
//
// Ring is not safe for concurrent use; the owning channel serializes
// all access under its own lock.
type Ring struct {
	buf      []byte
	msgLen   int
	capacity int
	readIdx  int
	writeIdx int
	count    int
}

// New allocates a Ring holding up to capacity messages of msgLen bytes
// each. capacity must be > 0 and msgLen must be >= 1.
func New(capacity, msgLen int) *Ring {
	if capacity <= 0 || msgLen < 1 {
		panic("ringbuf: invalid capacity or msgLen")
	}
	return &Ring{
		buf:      dirtmake.Bytes(capacity*msgLen, capacity*msgLen),
		msgLen:   msgLen,
		capacity: capacity,
	}
}

// Len returns the number of messages currently queued.
func (r *Ring) Len() int { return r.count }

// Cap returns the ring's fixed capacity.
func (r *Ring) Cap() int { return r.capacity }

// Full reports whether the ring holds capacity messages.
func (r *Ring) Full() bool { return r.count == r.capacity }

// Empty reports whether the ring holds no messages.
func (r *Ring) Empty() bool { return r.count == 0 }

// Push copies msg into the next write slot. Precondition: !Full().
// msg must be exactly msgLen bytes.
func (r *Ring) Push(msg []byte) {
	off := r.writeIdx * r.msgLen
	copy(r.buf[off:off+r.msgLen], msg)
	r.writeIdx++
	if r.writeIdx == r.capacity {
		r.writeIdx = 0
	}
	r.count++
}

// Pop copies the oldest queued message into out and advances the read
// index. Precondition: !Empty(). out must have room for msgLen bytes.
func (r *Ring) Pop(out []byte) {
	off := r.readIdx * r.msgLen
	copy(out, r.buf[off:off+r.msgLen])
	r.readIdx++
	if r.readIdx == r.capacity {
		r.readIdx = 0
	}
	r.count--
}
