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

	"github.com/bytedance/gopkg/lang/fastrand"
)

// RecvCase is one receive candidate offered to Select: a successful
// commit copies msgLen bytes from ch into Out.
type RecvCase struct {
	Ch  *Channel
	Out []byte
}

// SendCase is one send candidate offered to Select: a successful
// commit copies Msg into ch.
type SendCase struct {
	Ch  *Channel
	Msg []byte
}

// candidate unifies RecvCase and SendCase for the scan loop. Receive
// candidates occupy combined indices [0, len(recv)); send candidates
// occupy [len(recv), len(recv)+len(send)).
type candidate struct {
	ch     *Channel
	buf    []byte
	isRecv bool
}

// selectWaker is a Select call's private wake-handle: a mutex and
// condition variable the selector waits on between scans, registered
// as an observer.Handle on every candidate channel for the duration of
// one Select call.
type selectWaker struct {
	mu   sync.Mutex
	cond *sync.Cond
}

func newSelectWaker() *selectWaker {
	w := &selectWaker{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *selectWaker) Wake() {
	w.mu.Lock()
	w.cond.Signal()
	w.mu.Unlock()
}

func buildCandidates(recv []RecvCase, send []SendCase) []candidate {
	cands := make([]candidate, 0, len(recv)+len(send))
	for _, rc := range recv {
		cands = append(cands, candidate{ch: rc.Ch, buf: rc.Out, isRecv: true})
	}
	for _, sc := range send {
		cands = append(cands, candidate{ch: sc.Ch, buf: sc.Msg, isRecv: false})
	}
	return cands
}

// isReady runs the four-way readiness test (unbuffered recv/send,
// buffered recv/send). c.ch.mu must already be held by the caller.
func (c *candidate) isReady() bool {
	ch := c.ch
	if ch.unbuffered() {
		if ch.phase != phaseOneWaiting {
			return false
		}
		if c.isRecv {
			return !ch.expectingSender
		}
		return ch.expectingSender
	}
	if c.isRecv {
		return !ch.ring.Empty()
	}
	return !ch.ring.Full()
}

// commit performs the chosen operation. c.ch.mu must already be held;
// commit releases it.
func (c *candidate) commit() {
	ch := c.ch
	if ch.unbuffered() {
		if c.isRecv {
			copy(c.buf, ch.rendezvousSlot)
		} else {
			copy(ch.rendezvousSlot, c.buf)
		}
		ch.phase = phaseHandoffDone
		ch.mu.Unlock()
		ch.observers.Broadcast()
		ch.handoff.Signal()
		return
	}
	if c.isRecv {
		ch.ring.Pop(c.buf)
		ch.mu.Unlock()
		ch.observers.Broadcast()
		ch.notFull.Signal()
		return
	}
	ch.ring.Push(c.buf)
	ch.mu.Unlock()
	ch.observers.Broadcast()
	ch.notEmpty.Signal()
}

// scan performs one non-blocking readiness pass over every candidate.
// It returns the indices of candidates found ready (their channel
// locks are left held) and whether every candidate was closed.
//
// Every candidate is probed with a single TryLock, never a blocking
// Lock: earlier ready candidates in this same scan are left locked
// until commitOne, so a blocking Lock here on a later candidate could
// deadlock against another selector scanning the same channels in the
// opposite order. closed-ness is therefore only known for candidates
// whose TryLock succeeds; a candidate whose TryLock fails is treated
// as not-known-closed and simply reconsidered on the next scan.
func scan(cands []candidate) (ready []int, allClosed bool) {
	allClosed = true
	for i := range cands {
		c := &cands[i]
		if !c.ch.mu.TryLock() {
			allClosed = false
			continue
		}
		if c.ch.closed {
			c.ch.mu.Unlock()
			continue
		}
		allClosed = false
		if !c.isReady() {
			c.ch.mu.Unlock()
			continue
		}
		ready = append(ready, i)
	}
	return ready, allClosed
}

func unlockUnchosen(cands []candidate, ready []int, chosen int) {
	for _, i := range ready {
		if i != chosen {
			cands[i].ch.mu.Unlock()
		}
	}
}

func registerAll(cands []candidate, w *selectWaker) {
	for i := range cands {
		cands[i].ch.observers.Add(w)
	}
}

func deregisterAll(cands []candidate, w *selectWaker) {
	for i := range cands {
		cands[i].ch.observers.Remove(w)
	}
}

// Select blocks until some candidate receive or send is ready, then
// atomically commits exactly one of them chosen uniformly at random
// among those ready on the winning scan, and returns its combined
// index: receive candidates are indexed [0, len(recv)), send
// candidates [len(recv), len(recv)+len(send)). Select returns -1 only
// once every candidate channel is closed. With no candidates at all,
// Select returns -1 immediately.
func Select(recv []RecvCase, send []SendCase) int {
	cands := buildCandidates(recv, send)
	if len(cands) == 0 {
		return -1
	}

	w := newSelectWaker()
	registerAll(cands, w)
	defer deregisterAll(cands, w)

	// w.mu is held across each scan and only released inside
	// w.cond.Wait(): Wake (called from another goroutine's Broadcast)
	// also takes w.mu, so a wakeup arriving between a scan finding
	// nothing ready and this goroutine reaching Wait cannot be lost —
	// it simply blocks on w.mu until Wait's internal unlock, by which
	// point this goroutine is already registered as a waiter on cond.
	// w.mu is released before commitOne, because the commit's own
	// observer Broadcast calls w.Wake, which takes w.mu.
	w.mu.Lock()
	for {
		ready, allClosed := scan(cands)
		if len(ready) == 0 {
			if allClosed {
				w.mu.Unlock()
				return -1
			}
			w.cond.Wait()
			continue
		}
		w.mu.Unlock()
		return commitOne(cands, ready)
	}
}

// NonBlockingSelect returns immediately: the committed index if some
// candidate was ready at scan time, or -1 otherwise. It does not
// register an observer, since a one-shot snapshot never waits for a
// wakeup; NonBlockingSelect is purely a point-in-time read of channel
// state.
func NonBlockingSelect(recv []RecvCase, send []SendCase) int {
	cands := buildCandidates(recv, send)
	if len(cands) == 0 {
		return -1
	}
	ready, _ := scan(cands)
	if len(ready) == 0 {
		return -1
	}
	return commitOne(cands, ready)
}

func commitOne(cands []candidate, ready []int) int {
	k := ready[0]
	if n := len(ready); n > 1 {
		k = ready[fastrand.Uint32n(uint32(n))]
	}
	unlockUnchosen(cands, ready, k)
	cands[k].commit()
	return k
}
