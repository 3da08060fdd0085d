package voice

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// ChannelInfo is the subset of a platform channel the manager needs to
// place a sibling next to it.
type ChannelInfo struct {
	ID       string
	GuildID  string
	ParentID string
	Name     string
	Position int
	Bitrate  int
}

// ChannelSettings describes a voice channel to create.
type ChannelSettings struct {
	Name       string
	Limit      int
	Bitrate    int
	Position   int
	Overwrites []*discordgo.PermissionOverwrite
}

// ChannelProperties is a partial update; nil fields are left unchanged.
type ChannelProperties struct {
	Name       *string
	Limit      *int
	Overwrites []*discordgo.PermissionOverwrite
}

// Provider is the guild channel capability set the manager drives. Every
// call may block on platform I/O.
type Provider interface {
	Channel(ctx context.Context, channelID string) (*ChannelInfo, error)
	CreateVoiceChannel(ctx context.Context, guildID, parentID string, settings ChannelSettings) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error
	SetChannelProperties(ctx context.Context, channelID string, props ChannelProperties) error
	GetMemberCount(ctx context.Context, guildID, channelID string) (int, error)
	GetMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	// MemberVoiceChannel returns the voice channel the user is connected to,
	// or "" when the user is not in voice.
	MemberVoiceChannel(ctx context.Context, guildID, userID string) (string, error)
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
}

// Trigger is a registered click-to-create channel.
type Trigger struct {
	ChannelID    string
	GuildID      string
	NameTemplate string
	NameDefault  string
}

// TriggerSource resolves click-to-create channels. Trigger returns
// ErrUnknownTrigger for channels that are not registered.
type TriggerSource interface {
	Trigger(ctx context.Context, channelID string) (*Trigger, error)
}

// Journal persists committed channels so a restarted process can reclaim
// the channels it created.
type Journal interface {
	Save(ctx context.Context, ch CustomChannel) error
	Delete(ctx context.Context, channelID string) error
	LoadAll(ctx context.Context) ([]CustomChannel, error)
}

type nopJournal struct{}

func (nopJournal) Save(context.Context, CustomChannel) error { return nil }
func (nopJournal) Delete(context.Context, string) error { return nil }
func (nopJournal) LoadAll(context.Context) ([]CustomChannel, error) { return nil, nil }
