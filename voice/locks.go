package voice

import "sync"

// keyedMutex hands out one exclusive section per key. Callers waiting on the
// same key are admitted in arrival order: on release the section is handed
// to the oldest waiter, never to a caller that arrives afterwards.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	held    bool
	waiters []chan struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until the section for key is free and returns its release func.
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	if !e.held {
		e.held = true
		k.mu.Unlock()
		return k.release(key, e)
	}
	turn := make(chan struct{})
	e.waiters = append(e.waiters, turn)
	k.mu.Unlock()

	<-turn
	return k.release(key, e)
}

func (k *keyedMutex) release(key string, e *keyedEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			k.mu.Lock()
			defer k.mu.Unlock()
			if len(e.waiters) > 0 {
				next := e.waiters[0]
				e.waiters[0] = nil
				e.waiters = e.waiters[1:]
				close(next)
				return
			}
			e.held = false
			delete(k.locks, key)
		})
	}
}

// waiting returns how many callers are parked on key.
func (k *keyedMutex) waiting(key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.locks[key]; ok {
		return len(e.waiters)
	}
	return 0
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func ownerKey(ownerID string) string     { return "owner:" + ownerID }
func channelKey(channelID string) string { return "channel:" + channelID }
