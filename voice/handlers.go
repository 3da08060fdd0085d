package voice

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Bridge forwards gateway voice state updates to the Manager. Joining a
// click channel creates a custom channel named from the trigger's template.
type Bridge struct {
	manager  *Manager
	provider Provider
	triggers TriggerSource

	ctx context.Context
	wg  sync.WaitGroup
}

func NewBridge(ctx context.Context, manager *Manager, provider Provider, triggers TriggerSource) *Bridge {
	return &Bridge{
		manager:  manager,
		provider: provider,
		triggers: triggers,
		ctx:      ctx,
	}
}

// VCUpdate is registered with discordgo's AddHandler.
func (b *Bridge) VCUpdate(s *discordgo.Session, i *discordgo.VoiceStateUpdate) {
	b.handle(i)
}

// Wait blocks until in-flight channel creations finish.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

func (b *Bridge) handle(i *discordgo.VoiceStateUpdate) {
	if i.VoiceState == nil {
		return
	}
	var before string
	if i.BeforeUpdate != nil {
		before = i.BeforeUpdate.ChannelID
	}
	if before == i.ChannelID {
		log.Debugf("User %v did something but nothing relevant happened", i.UserID)
		return
	}

	var returnedTo string
	if i.ChannelID != "" {
		returnedTo = b.userJoined(i.GuildID, i.UserID, i.ChannelID)
	}
	if before != "" && before != returnedTo {
		b.userLeft(i.GuildID, before)
	}
}

// userJoined returns the owned channel the user was sent back to, if any.
func (b *Bridge) userJoined(guildID, userID, channelID string) string {
	b.manager.NotifyMemberJoined(channelID, userID)

	if _, err := b.triggers.Trigger(b.ctx, channelID); err != nil {
		if !errors.Is(err, ErrUnknownTrigger) {
			log.Error(err)
		}
		return ""
	}

	if owned, ok := b.manager.ChannelOf(userID); ok {
		log.Debugf("User %v clicked %v but already owns %v, moving them back", userID, channelID, owned.ChannelID)
		if err := b.provider.MoveMember(b.ctx, guildID, userID, owned.ChannelID); err != nil {
			log.Debugf("Could not move %v back to %v: %v", userID, owned.ChannelID, err)
			return ""
		}
		return owned.ChannelID
	}

	log.Debugf("User %v joined click channel %v, creating a channel", userID, channelID)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		_, err := b.manager.CreateChannel(b.ctx, channelID, userID, "", 0, false)
		if err != nil && !errors.Is(err, ErrAlreadyOwnsChannel) {
			log.Warnf("Could not create channel for %v from %v: %v", userID, channelID, err)
		}
	}()
	return ""
}

func (b *Bridge) userLeft(guildID, channelID string) {
	if _, ok := b.manager.store.Get(channelID); !ok {
		return
	}
	count, err := b.provider.GetMemberCount(b.ctx, guildID, channelID)
	if err != nil {
		if errors.Is(err, ErrChannelGone) {
			b.manager.Forget(b.ctx, channelID)
			return
		}
		log.Warnf("Could not count members of %v, leaving it to the sweeper: %v", channelID, err)
		return
	}
	if err := b.manager.NotifyMembershipChanged(b.ctx, channelID, count); err != nil {
		log.Warn(err)
	}
}
