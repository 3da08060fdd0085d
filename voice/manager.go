package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Haibread/voicekeep/logging"
	"github.com/Haibread/voicekeep/metrics"
	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const DefaultGraceWindow = 30 * time.Second

var log *zap.SugaredLogger

func init() {
	log = logging.InitLogger()
}

// EditRequest carries the fields to change; nil fields are left unchanged.
type EditRequest struct {
	Name     *string
	Limit    *int
	IsPublic *bool
}

// Manager owns the lifecycle of custom voice channels. Creation is
// serialized per owner, edits per channel, and retirement per owner and
// channel.
type Manager struct {
	store    *Store
	provider Provider
	triggers TriggerSource
	journal  Journal
	clock    clockwork.Clock
	grace    time.Duration
	locks    *keyedMutex

	mu      sync.Mutex
	pending map[string]*joinWaiter
}

type joinWaiter struct {
	ownerID string
	joined  chan struct{}
	once    sync.Once
}

type Option func(*Manager)

func WithJournal(j Journal) Option {
	return func(m *Manager) { m.journal = j }
}

func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithGraceWindow sets how long a requester has to occupy a new channel.
func WithGraceWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.grace = d
		}
	}
}

func NewManager(store *Store, provider Provider, triggers TriggerSource, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		provider: provider,
		triggers: triggers,
		journal:  nopJournal{},
		clock:    clockwork.NewRealClock(),
		grace:    DefaultGraceWindow,
		locks:    newKeyedMutex(),
		pending:  make(map[string]*joinWaiter),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore loads journaled channels into the store. Only channels this
// manager created are ever restored, so unrelated voice channels are never
// candidates for retirement.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	channels, err := m.journal.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load channel journal: %w", err)
	}
	for _, ch := range channels {
		if dup := m.store.Put(ch); dup {
			log.Warnf("Owner %v has more than one restored channel, keeping %v for later cleanup", ch.OwnerID, ch.ChannelID)
		}
	}
	metrics.ChannelsActive.Set(float64(m.store.Len()))
	log.Infof("Restored %d custom channels", len(channels))
	return len(channels), nil
}

// Channels returns a snapshot of every managed channel.
func (m *Manager) Channels() []CustomChannel {
	return m.store.All()
}

// ChannelOf returns the channel owned by ownerID.
func (m *Manager) ChannelOf(ownerID string) (CustomChannel, bool) {
	return m.store.GetByOwner(ownerID)
}

// CreateChannel allocates a custom channel next to the trigger channel and
// commits it once the requester occupies it. An empty name is rendered from
// the trigger's name template.
func (m *Manager) CreateChannel(ctx context.Context, triggerChannelID, requesterID, name string, limit int, isPublic bool) (CustomChannel, error) {
	if limit < 0 {
		return CustomChannel{}, ErrInvalidLimit
	}

	trigger, err := m.triggers.Trigger(ctx, triggerChannelID)
	if err != nil {
		if !errors.Is(err, ErrUnknownTrigger) {
			err = fmt.Errorf("lookup trigger %v: %w", triggerChannelID, err)
		}
		metrics.ChannelCreateFailuresTotal.WithLabelValues("trigger").Inc()
		return CustomChannel{}, err
	}

	unlock := m.locks.Lock(ownerKey(requesterID))
	defer unlock()

	if owned, ok := m.store.GetByOwner(requesterID); ok {
		log.Debugf("User %v already owns channel %v", requesterID, owned.ChannelID)
		metrics.ChannelCreateFailuresTotal.WithLabelValues("already_owns").Inc()
		return CustomChannel{}, ErrAlreadyOwnsChannel
	}

	parent, err := m.provider.Channel(ctx, triggerChannelID)
	if err != nil {
		return CustomChannel{}, m.createFailed(providerError("channel", err))
	}
	guildID := parent.GuildID
	if guildID == "" {
		guildID = trigger.GuildID
	}

	member, err := m.provider.GetMember(ctx, guildID, requesterID)
	if err != nil {
		return CustomChannel{}, m.createFailed(providerError("get member", err))
	}

	if name == "" {
		name, err = channelName(trigger, displayName(member), m.rank(triggerChannelID))
		if err != nil {
			log.Warnf("Could not render name template of trigger %v: %v", triggerChannelID, err)
			name, _ = channelName(&Trigger{NameDefault: trigger.NameDefault}, "", m.rank(triggerChannelID))
		}
	}

	channelID, err := m.provider.CreateVoiceChannel(ctx, guildID, parent.ParentID, ChannelSettings{
		Name:       name,
		Limit:      limit,
		Bitrate:    parent.Bitrate,
		Position:   parent.Position + 1,
		Overwrites: overwritesFor(guildID, requesterID, isPublic),
	})
	if err != nil {
		return CustomChannel{}, m.createFailed(providerError("create voice channel", err))
	}
	log.Debugf("Created channel %v for user %v, waiting for them to join", channelID, requesterID)

	ch := CustomChannel{
		ChannelID:        channelID,
		GuildID:          guildID,
		OwnerID:          requesterID,
		TriggerChannelID: triggerChannelID,
		Name:             name,
		MemberLimit:      limit,
		IsPublic:         isPublic,
	}

	if err := m.awaitJoin(ctx, guildID, requesterID, channelID); err != nil {
		m.rollback(ctx, ch)
		metrics.ChannelCreateFailuresTotal.WithLabelValues("not_joined").Inc()
		return CustomChannel{}, err
	}

	ch.CreatedAt = m.clock.Now()
	if err := m.journal.Save(ctx, ch); err != nil {
		m.rollback(ctx, ch)
		metrics.ChannelCreateFailuresTotal.WithLabelValues("commit").Inc()
		return CustomChannel{}, fmt.Errorf("commit channel %v: %w", channelID, err)
	}
	m.commit(ch)

	metrics.ChannelsCreatedTotal.Inc()
	log.Infof("User %v now owns channel %v (%q, limit %d, public %t)", requesterID, channelID, name, limit, isPublic)
	return ch, nil
}

// EditChannel updates the requester's channel. The platform is updated first;
// the store only changes once the platform accepted the change.
func (m *Manager) EditChannel(ctx context.Context, requesterID string, req EditRequest) (CustomChannel, error) {
	if req.Limit != nil && *req.Limit < 0 {
		return CustomChannel{}, ErrInvalidLimit
	}

	owned, ok := m.store.GetByOwner(requesterID)
	if !ok {
		log.Debugf("User %v tried to edit without owning a channel", requesterID)
		metrics.ChannelEditsTotal.WithLabelValues("no_owned_channel").Inc()
		return CustomChannel{}, ErrNoOwnedChannel
	}

	unlock := m.locks.Lock(channelKey(owned.ChannelID))
	defer unlock()

	// The channel may have been retired while we waited.
	cur, ok := m.store.Get(owned.ChannelID)
	if !ok || cur.OwnerID != requesterID {
		metrics.ChannelEditsTotal.WithLabelValues("no_owned_channel").Inc()
		return CustomChannel{}, ErrNoOwnedChannel
	}

	next := cur
	var props ChannelProperties
	changed := false
	if req.Name != nil && *req.Name != cur.Name {
		next.Name = *req.Name
		props.Name = req.Name
		changed = true
	}
	if req.Limit != nil && *req.Limit != cur.MemberLimit {
		next.MemberLimit = *req.Limit
		props.Limit = req.Limit
		changed = true
	}
	if req.IsPublic != nil && *req.IsPublic != cur.IsPublic {
		next.IsPublic = *req.IsPublic
		props.Overwrites = overwritesFor(cur.GuildID, cur.OwnerID, next.IsPublic)
		changed = true
	}
	if !changed {
		metrics.ChannelEditsTotal.WithLabelValues("unchanged").Inc()
		return cur, nil
	}

	if err := m.provider.SetChannelProperties(ctx, cur.ChannelID, props); err != nil {
		log.Errorf("Could not edit channel %v: %v", cur.ChannelID, err)
		metrics.ChannelEditsTotal.WithLabelValues("provider_error").Inc()
		return CustomChannel{}, providerError("set channel properties", err)
	}

	m.store.Put(next)
	if err := m.journal.Save(ctx, next); err != nil {
		log.Warnf("Channel %v edited but journal update failed: %v", next.ChannelID, err)
	}
	metrics.ChannelEditsTotal.WithLabelValues("ok").Inc()
	log.Debugf("Channel %v edited by %v", next.ChannelID, requesterID)
	return next, nil
}

// NotifyMembershipChanged retires a managed channel once it is empty. Calls
// for unmanaged or already retired channels are no-ops.
func (m *Manager) NotifyMembershipChanged(ctx context.Context, channelID string, memberCount int) error {
	if memberCount > 0 {
		return nil
	}
	return m.retire(ctx, channelID)
}

// NotifyMemberJoined releases a pending grace-window wait when the owner of
// a freshly created channel connects to it.
func (m *Manager) NotifyMemberJoined(channelID, userID string) {
	m.mu.Lock()
	w, ok := m.pending[channelID]
	m.mu.Unlock()
	if !ok || w.ownerID != userID {
		return
	}
	w.once.Do(func() { close(w.joined) })
}

// Forget drops the record of a channel that no longer exists on the
// platform without issuing a delete.
func (m *Manager) Forget(ctx context.Context, channelID string) {
	unlock := m.locks.Lock(channelKey(channelID))
	defer unlock()

	if _, ok := m.store.Remove(channelID); !ok {
		return
	}
	if err := m.journal.Delete(ctx, channelID); err != nil {
		log.Warnf("Could not remove journal entry of vanished channel %v: %v", channelID, err)
	}
	metrics.ChannelsActive.Set(float64(m.store.Len()))
	log.Warnf("Channel %v vanished from the platform, dropped its record", channelID)
}

// retire holds the owner's section as well as the channel's, so the owner
// cannot create a second channel while the delete is in flight. Locks are
// always taken owner first, then channel.
func (m *Manager) retire(ctx context.Context, channelID string) error {
	peek, ok := m.store.Get(channelID)
	if !ok {
		return nil
	}
	unlockOwner := m.locks.Lock(ownerKey(peek.OwnerID))
	defer unlockOwner()
	unlock := m.locks.Lock(channelKey(channelID))
	defer unlock()

	// Readers must never see a record whose platform channel is gone.
	ch, ok := m.store.Remove(channelID)
	if !ok {
		return nil
	}

	if err := m.provider.DeleteChannel(ctx, channelID); err != nil && !errors.Is(err, ErrChannelGone) {
		if dup := m.store.Put(ch); dup {
			log.Warnf("Owner %v holds more than one channel, kept %v for retry", ch.OwnerID, channelID)
		}
		metrics.ChannelRetireFailuresTotal.Inc()
		log.Errorf("Could not delete empty channel %v, will retry: %v", channelID, err)
		return providerError("delete channel", err)
	}

	if err := m.journal.Delete(ctx, channelID); err != nil {
		log.Warnf("Channel %v deleted but journal cleanup failed: %v", channelID, err)
	}
	metrics.ChannelsRetiredTotal.Inc()
	metrics.ChannelsActive.Set(float64(m.store.Len()))
	log.Debugf("Channel %v of user %v is empty, deleted it", channelID, ch.OwnerID)
	return nil
}

func (m *Manager) commit(ch CustomChannel) {
	if dup := m.store.Put(ch); dup {
		log.Warnf("Owner %v holds more than one channel, latest is %v", ch.OwnerID, ch.ChannelID)
	}
	metrics.ChannelsActive.Set(float64(m.store.Len()))
}

// rollback deletes a channel that was never committed. When the delete
// fails the channel is committed anyway so the sweeper can reclaim it.
func (m *Manager) rollback(ctx context.Context, ch CustomChannel) {
	ctx = context.WithoutCancel(ctx)
	err := m.provider.DeleteChannel(ctx, ch.ChannelID)
	if err == nil || errors.Is(err, ErrChannelGone) {
		log.Debugf("Rolled back channel %v of user %v", ch.ChannelID, ch.OwnerID)
		return
	}

	log.Errorf("Could not roll back channel %v, leaving it to the sweeper: %v", ch.ChannelID, err)
	ch.CreatedAt = m.clock.Now()
	if err := m.journal.Save(ctx, ch); err != nil {
		log.Errorf("Could not journal orphaned channel %v: %v", ch.ChannelID, err)
	}
	m.commit(ch)
}

func (m *Manager) createFailed(err error) error {
	log.Error(err)
	metrics.ChannelCreateFailuresTotal.WithLabelValues("provider").Inc()
	return err
}

func (m *Manager) awaitJoin(ctx context.Context, guildID, ownerID, channelID string) error {
	w := &joinWaiter{ownerID: ownerID, joined: make(chan struct{})}
	m.mu.Lock()
	m.pending[channelID] = w
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.pending, channelID)
		m.mu.Unlock()
	}()

	current, err := m.provider.MemberVoiceChannel(ctx, guildID, ownerID)
	switch {
	case err != nil:
		log.Debugf("Could not look up voice state of %v: %v", ownerID, err)
	case current == channelID:
		return nil
	case current != "":
		err := m.provider.MoveMember(ctx, guildID, ownerID, channelID)
		if err == nil {
			return nil
		}
		log.Debugf("Could not move %v to %v: %v", ownerID, channelID, err)
	}

	timer := m.clock.NewTimer(m.grace)
	defer timer.Stop()

	select {
	case <-w.joined:
		return nil
	case <-timer.Chan():
		return ErrNotJoinedInTime
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrNotJoinedInTime, ctx.Err())
	}
}

func (m *Manager) rank(triggerChannelID string) int {
	rank := 1
	for _, ch := range m.store.All() {
		if ch.TriggerChannelID == triggerChannelID {
			rank++
		}
	}
	return rank
}

func displayName(member *discordgo.Member) string {
	if member == nil {
		return ""
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return ""
}
