package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

const (
	testGuild   = "759083170619588669"
	testTrigger = "941649245168091136"
	testParent  = "759133604554604574"
)

// fakeProvider records calls and keeps channel membership in memory.
type fakeProvider struct {
	mu sync.Mutex

	nextID   int
	channels map[string]ChannelSettings
	members  map[string]int    // channel -> member count
	voice    map[string]string // user -> channel
	created  []string
	deleted  []string
	edits    []ChannelProperties

	createErr error
	deleteErr error
	editErr   error
	countErr  map[string]error
	moveErr   error

	// When set, DeleteChannel reports on deleting and waits for release.
	deleting chan string
	release  chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		nextID:   1000,
		channels: make(map[string]ChannelSettings),
		members:  make(map[string]int),
		voice:    make(map[string]string),
		countErr: make(map[string]error),
	}
}

func (f *fakeProvider) Channel(_ context.Context, channelID string) (*ChannelInfo, error) {
	return &ChannelInfo{ID: channelID, GuildID: testGuild, ParentID: testParent, Position: 2, Bitrate: 64000}, nil
}

func (f *fakeProvider) CreateVoiceChannel(_ context.Context, _, _ string, settings ChannelSettings) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("%d", f.nextID)
	f.channels[id] = settings
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeProvider) DeleteChannel(_ context.Context, channelID string) error {
	if f.deleting != nil {
		f.deleting <- channelID
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.channels, channelID)
	return nil
}

func (f *fakeProvider) SetChannelProperties(_ context.Context, channelID string, props ChannelProperties) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, props)
	s := f.channels[channelID]
	if props.Name != nil {
		s.Name = *props.Name
	}
	if props.Limit != nil {
		s.Limit = *props.Limit
	}
	if props.Overwrites != nil {
		s.Overwrites = props.Overwrites
	}
	f.channels[channelID] = s
	return nil
}

func (f *fakeProvider) GetMemberCount(_ context.Context, _, channelID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.countErr[channelID]; err != nil {
		return 0, err
	}
	return f.members[channelID], nil
}

func (f *fakeProvider) GetMember(_ context.Context, _, userID string) (*discordgo.Member, error) {
	return &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user-" + userID}}, nil
}

func (f *fakeProvider) MemberVoiceChannel(_ context.Context, _, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voice[userID], nil
}

func (f *fakeProvider) MoveMember(_ context.Context, _, userID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveErr != nil {
		return f.moveErr
	}
	if prev := f.voice[userID]; prev != "" {
		f.members[prev]--
	}
	f.voice[userID] = channelID
	f.members[channelID]++
	return nil
}

func (f *fakeProvider) connect(userID, channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voice[userID] = channelID
	f.members[channelID]++
}

func (f *fakeProvider) setMembers(channelID string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[channelID] = n
}

func (f *fakeProvider) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeProvider) createdIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.created...)
}

type fakeTriggers map[string]*Trigger

func (f fakeTriggers) Trigger(_ context.Context, channelID string) (*Trigger, error) {
	t, ok := f[channelID]
	if !ok {
		return nil, ErrUnknownTrigger
	}
	return t, nil
}

func defaultTriggers() fakeTriggers {
	return fakeTriggers{
		testTrigger: {ChannelID: testTrigger, GuildID: testGuild, NameDefault: "Général"},
	}
}

type fakeJournal struct {
	mu      sync.Mutex
	records map[string]CustomChannel
	saveErr error
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{records: make(map[string]CustomChannel)}
}

func (j *fakeJournal) Save(_ context.Context, ch CustomChannel) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.saveErr != nil {
		return j.saveErr
	}
	j.records[ch.ChannelID] = ch
	return nil
}

func (j *fakeJournal) Delete(_ context.Context, channelID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.records, channelID)
	return nil
}

func (j *fakeJournal) LoadAll(_ context.Context) ([]CustomChannel, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]CustomChannel, 0, len(j.records))
	for _, ch := range j.records {
		out = append(out, ch)
	}
	return out, nil
}

func (j *fakeJournal) has(channelID string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.records[channelID]
	return ok
}

var errPlatform = errors.New("discord unavailable")
