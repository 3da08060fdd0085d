package voice

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("owner:U")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, k.size())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestLockKeysDoNotCollide(t *testing.T) {
	assert.NotEqual(t, ownerKey("123"), channelKey("123"))
}

func TestKeyedMutex_AdmitsInArrivalOrder(t *testing.T) {
	k := newKeyedMutex()
	const key = "channel:1"
	const waiters = 8

	unlock := k.Lock(key)

	var (
		mu       sync.Mutex
		admitted []int
		wg       sync.WaitGroup
	)
	for i := 1; i <= waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release := k.Lock(key)
			mu.Lock()
			admitted = append(admitted, i)
			mu.Unlock()
			release()
		}(i)
		// Park each waiter before the next one arrives.
		require.Eventually(t, func() bool { return k.waiting(key) == i }, time.Second, time.Millisecond)
	}

	// The holder releases and immediately asks again; it must queue behind
	// every parked waiter.
	unlock()
	late := k.Lock(key)
	mu.Lock()
	admitted = append(admitted, waiters+1)
	mu.Unlock()
	late()
	wg.Wait()

	expected := make([]int, 0, waiters+1)
	for i := 1; i <= waiters+1; i++ {
		expected = append(expected, i)
	}
	assert.Equal(t, expected, admitted)
	assert.Zero(t, k.size())
}

func TestKeyedMutex_ReleaseTwiceIsHarmless(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	unlock()
	unlock()

	second := k.Lock("a")
	third := make(chan struct{})
	go func() {
		release := k.Lock("a")
		release()
		close(third)
	}()
	require.Eventually(t, func() bool { return k.waiting("a") == 1 }, time.Second, time.Millisecond)
	second()
	<-third
	assert.Zero(t, k.size())
}
