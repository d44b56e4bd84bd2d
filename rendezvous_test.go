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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudwego/cspchan/task"
)

// S2: sender sleeps 50ms then sends; receiver's wall-clock wait must
// be >= 50ms.
func TestScenarioS2RendezvousTiming(t *testing.T) {
	ch, err := New(0, 4)
	require.NoError(t, err)

	tk, err := task.Go(func() {
		task.Sleep(50 * time.Millisecond)
		ch.Send(u32(12345))
	})
	require.NoError(t, err)

	start := time.Now()
	out := make([]byte, 4)
	ch.Receive(out)
	elapsed := time.Since(start)

	require.Equal(t, uint32(12345), readU32(out))
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	tk.Join()
}

// Rendezvous atomicity (property 2): every completed send pairs with
// exactly one completed receive, and the value is preserved.
func TestRendezvousAtomicity(t *testing.T) {
	ch, err := New(0, 4)
	require.NoError(t, err)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2 * n)

	seen := make([]int32, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			ch.Send(u32(uint32(i)))
		}()
		go func() {
			defer wg.Done()
			out := make([]byte, 4)
			ch.Receive(out)
			atomic.StoreInt32(&seen[readU32(out)], 1)
		}()
	}
	wg.Wait()

	for i, v := range seen {
		require.EqualValues(t, 1, v, "value %d never observed", i)
	}
}

// A wrong-polarity peer (second sender while a sender already waits)
// must defer rather than complete against the wrong side.
func TestRendezvousWrongPolarityDefers(t *testing.T) {
	ch, err := New(0, 4)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		ch.Send(u32(1)) // first arriver, advertises "need a receiver"
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	secondSenderDone := make(chan struct{})
	go func() {
		ch.Send(u32(2)) // wrong polarity: must wait behind the first sender
		close(secondSenderDone)
	}()
	time.Sleep(10 * time.Millisecond)

	select {
	case <-secondSenderDone:
		t.Fatal("second sender completed before any receiver arrived")
	default:
	}

	out := make([]byte, 4)
	ch.Receive(out)
	require.Equal(t, uint32(1), readU32(out))
	<-done

	ch.Receive(out)
	require.Equal(t, uint32(2), readU32(out))
	<-secondSenderDone
}

// No-wedge after close (property 5): a blocked rendezvous Send/Receive
// unblocks once the channel closes.
func TestRendezvousNoWedgeAfterClose(t *testing.T) {
	ch, err := New(0, 4)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		out := make([]byte, 4)
		ch.Receive(out) // nobody will ever send
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	ch.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receive did not unblock after close")
	}
}
