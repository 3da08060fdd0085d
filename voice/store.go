package voice

import (
	"sort"
	"sync"
	"time"
)

// CustomChannel is a live, user-owned voice channel created by the Manager.
type CustomChannel struct {
	ChannelID        string
	GuildID          string
	OwnerID          string
	TriggerChannelID string
	Name             string
	MemberLimit      int
	IsPublic         bool
	CreatedAt        time.Time
}

// Store is the in-memory registry of custom channels. Records are stored and
// returned by value so callers never share mutable state with the store.
type Store struct {
	mu       sync.RWMutex
	channels map[string]CustomChannel
	// owners keeps channel ids per owner in insertion order.
	owners map[string][]string
}

func NewStore() *Store {
	return &Store{
		channels: make(map[string]CustomChannel),
		owners:   make(map[string][]string),
	}
}

// Put inserts or replaces the record keyed by ch.ChannelID. It reports
// whether the owner already had a different channel registered.
func (s *Store) Put(ch CustomChannel) (duplicateOwner bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.channels[ch.ChannelID]; ok && prev.OwnerID != ch.OwnerID {
		s.unindex(prev.OwnerID, prev.ChannelID)
	}
	s.channels[ch.ChannelID] = ch

	ids := s.owners[ch.OwnerID]
	for _, id := range ids {
		if id == ch.ChannelID {
			return len(ids) > 1
		}
	}
	s.owners[ch.OwnerID] = append(ids, ch.ChannelID)
	return len(ids) > 0
}

func (s *Store) Get(channelID string) (CustomChannel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[channelID]
	return ch, ok
}

// GetByOwner returns the first channel registered for the owner.
func (s *Store) GetByOwner(ownerID string) (CustomChannel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.owners[ownerID]
	if len(ids) == 0 {
		return CustomChannel{}, false
	}
	return s.channels[ids[0]], true
}

// Remove deletes the record and returns it.
func (s *Store) Remove(channelID string) (CustomChannel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelID]
	if !ok {
		return CustomChannel{}, false
	}
	delete(s.channels, channelID)
	s.unindex(ch.OwnerID, channelID)
	return ch, true
}

// All returns a snapshot of every record ordered by creation time.
func (s *Store) All() []CustomChannel {
	s.mu.RLock()
	out := make([]CustomChannel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ChannelID < out[j].ChannelID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}

func (s *Store) unindex(ownerID, channelID string) {
	ids := s.owners[ownerID]
	for i, id := range ids {
		if id == channelID {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.owners, ownerID)
		return
	}
	s.owners[ownerID] = ids
}
