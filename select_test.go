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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudwego/cspchan/task"
)

// S6: blocking select over two already-closed channels returns -1.
func TestScenarioS6AllClosedSelect(t *testing.T) {
	a, err := New(1, 4)
	require.NoError(t, err)
	b, err := New(0, 4)
	require.NoError(t, err)
	a.Close()
	b.Close()

	outA, outB := make([]byte, 4), make([]byte, 4)
	idx := Select([]RecvCase{{Ch: a, Out: outA}, {Ch: b, Out: outB}}, nil)
	require.Equal(t, -1, idx)
}

func TestNonBlockingSelectNoneReady(t *testing.T) {
	a, err := New(1, 4)
	require.NoError(t, err)
	outA := make([]byte, 4)
	idx := NonBlockingSelect([]RecvCase{{Ch: a, Out: outA}}, nil)
	require.Equal(t, -1, idx)
}

func TestNonBlockingSelectReady(t *testing.T) {
	a, err := New(1, 4)
	require.NoError(t, err)
	a.Send(u32(7))

	out := make([]byte, 4)
	idx := NonBlockingSelect([]RecvCase{{Ch: a, Out: out}}, nil)
	require.Equal(t, 0, idx)
	require.Equal(t, uint32(7), readU32(out))
}

// No-wedge after close (property 5), select variant: a blocked Select
// unblocks (returning -1) once every candidate channel closes.
func TestSelectNoWedgeAfterClose(t *testing.T) {
	a, err := New(0, 4)
	require.NoError(t, err)
	b, err := New(1, 4)
	require.NoError(t, err)

	done := make(chan int)
	go func() {
		outA, outB := make([]byte, 4), make([]byte, 4)
		done <- Select([]RecvCase{{Ch: a, Out: outA}, {Ch: b, Out: outB}}, nil)
	}()
	time.Sleep(10 * time.Millisecond)
	a.Close()
	b.Close()

	select {
	case idx := <-done:
		require.Equal(t, -1, idx)
	case <-time.After(time.Second):
		t.Fatal("select did not unblock after all candidates closed")
	}
}

func TestBufferedNoWedgeAfterClose(t *testing.T) {
	ch, err := New(1, 4)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		out := make([]byte, 4)
		ch.Receive(out) // empty buffer, nobody will ever send
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	ch.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("buffered receive did not unblock after close")
	}
}

func TestSelectWithNoCandidatesReturnsNegativeOne(t *testing.T) {
	require.Equal(t, -1, Select(nil, nil))
	require.Equal(t, -1, NonBlockingSelect(nil, nil))
}

func TestSelectPicksReadySend(t *testing.T) {
	full, err := New(1, 4)
	require.NoError(t, err)
	full.Send(u32(1)) // now full: send candidate not ready

	open, err := New(1, 4)
	require.NoError(t, err)

	idx := Select(nil, []SendCase{
		{Ch: full, Msg: u32(99)},
		{Ch: open, Msg: u32(5)},
	})
	require.Equal(t, 1, idx)

	out := make([]byte, 4)
	open.Receive(out)
	require.Equal(t, uint32(5), readU32(out))
}

// Select blocks until a candidate becomes ready via a concurrent
// sender, then commits it and returns the receive's combined index.
func TestSelectBlocksUntilReady(t *testing.T) {
	ch, err := New(0, 4)
	require.NoError(t, err)

	tk, err := task.Go(func() {
		task.Sleep(20 * time.Millisecond)
		ch.Send(u32(77))
	})
	require.NoError(t, err)

	out := make([]byte, 4)
	idx := Select([]RecvCase{{Ch: ch, Out: out}}, nil)
	require.Equal(t, 0, idx)
	require.Equal(t, uint32(77), readU32(out))
	tk.Join()
}

// Select non-starvation under readiness (property 6): with two
// buffered channels both perpetually non-empty, many Select calls must
// eventually pick each at least once.
func TestSelectNonStarvation(t *testing.T) {
	a, err := New(4, 4)
	require.NoError(t, err)
	b, err := New(4, 4)
	require.NoError(t, err)

	a.Send(u32(1))
	a.Send(u32(1))
	b.Send(u32(1))
	b.Send(u32(1))

	seenA, seenB := false, false
	outA, outB := make([]byte, 4), make([]byte, 4)
	for i := 0; i < 200 && !(seenA && seenB); i++ {
		idx := Select([]RecvCase{{Ch: a, Out: outA}, {Ch: b, Out: outB}}, nil)
		switch idx {
		case 0:
			seenA = true
			a.Send(u32(1)) // keep it ready for future iterations
		case 1:
			seenB = true
			b.Send(u32(1))
		default:
			t.Fatalf("unexpected select result %d", idx)
		}
	}
	require.True(t, seenA, "channel a was never chosen")
	require.True(t, seenB, "channel b was never chosen")
}
