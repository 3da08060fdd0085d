package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Haibread/voicekeep/voice"
	"github.com/bwmarrin/discordgo"
)

// Provider drives a discordgo session. Reads are served from the session
// state cache where possible and fall back to the REST API.
type Provider struct {
	s *discordgo.Session
}

func NewProvider(s *discordgo.Session) *Provider {
	return &Provider{s: s}
}

func (p *Provider) Channel(_ context.Context, channelID string) (*voice.ChannelInfo, error) {
	channel, err := p.s.State.Channel(channelID)
	if err != nil {
		channel, err = p.s.Channel(channelID)
		if err != nil {
			return nil, translate(err)
		}
	}
	return &voice.ChannelInfo{
		ID:       channel.ID,
		GuildID:  channel.GuildID,
		ParentID: channel.ParentID,
		Name:     channel.Name,
		Position: channel.Position,
		Bitrate:  channel.Bitrate,
	}, nil
}

func (p *Provider) CreateVoiceChannel(_ context.Context, guildID, parentID string, settings voice.ChannelSettings) (string, error) {
	channelToCreate := discordgo.GuildChannelCreateData{
		Name:                 settings.Name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		Bitrate:              settings.Bitrate,
		UserLimit:            settings.Limit,
		Position:             settings.Position,
		ParentID:             parentID,
		PermissionOverwrites: settings.Overwrites,
	}

	chanCreated, err := p.s.GuildChannelCreateComplex(guildID, channelToCreate)
	if err != nil {
		return "", translate(err)
	}
	return chanCreated.ID, nil
}

func (p *Provider) DeleteChannel(_ context.Context, channelID string) error {
	_, err := p.s.ChannelDelete(channelID)
	return translate(err)
}

// SetChannelProperties patches the channel directly: discordgo's ChannelEdit
// drops a zero user limit, which is how "unlimited" is expressed.
func (p *Provider) SetChannelProperties(_ context.Context, channelID string, props voice.ChannelProperties) error {
	body := map[string]interface{}{}
	if props.Name != nil {
		body["name"] = *props.Name
	}
	if props.Limit != nil {
		body["user_limit"] = *props.Limit
	}
	if props.Overwrites != nil {
		body["permission_overwrites"] = props.Overwrites
	}
	if len(body) == 0 {
		return nil
	}

	endpoint := discordgo.EndpointChannel(channelID)
	_, err := p.s.RequestWithBucketID(http.MethodPatch, endpoint, body, endpoint)
	return translate(err)
}

func (p *Provider) GetMemberCount(_ context.Context, guildID, channelID string) (int, error) {
	if _, err := p.s.State.Channel(channelID); err != nil {
		// Not cached; make sure the channel still exists.
		if _, err := p.s.Channel(channelID); err != nil {
			return 0, translate(err)
		}
	}

	guild, err := p.s.State.Guild(guildID)
	if err != nil {
		return 0, fmt.Errorf("guild %v not in state: %w", guildID, err)
	}

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			count++
		}
	}
	return count, nil
}

func (p *Provider) GetMember(_ context.Context, guildID, userID string) (*discordgo.Member, error) {
	member, err := p.s.State.Member(guildID, userID)
	if err == nil {
		return member, nil
	}
	member, err = p.s.GuildMember(guildID, userID)
	return member, translate(err)
}

func (p *Provider) MemberVoiceChannel(_ context.Context, guildID, userID string) (string, error) {
	vs, err := p.s.State.VoiceState(guildID, userID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return vs.ChannelID, nil
}

func (p *Provider) MoveMember(_ context.Context, guildID, userID, channelID string) error {
	return translate(p.s.GuildMemberMove(guildID, userID, &channelID))
}

// GuildRoleIDs returns the ids of every role of the guild.
func (p *Provider) GuildRoleIDs(_ context.Context, guildID string) (map[string]bool, error) {
	roles, err := p.s.GuildRoles(guildID)
	if err != nil {
		return nil, translate(err)
	}
	ids := make(map[string]bool, len(roles))
	for _, r := range roles {
		ids[r.ID] = true
	}
	return ids, nil
}

func (p *Provider) AddRole(_ context.Context, guildID, userID, roleID string) error {
	return translate(p.s.GuildMemberRoleAdd(guildID, userID, roleID))
}

// translate maps "Unknown Channel" responses onto voice.ErrChannelGone.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return fmt.Errorf("%w: %v", voice.ErrChannelGone, err)
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound && restErr.Message == nil {
			return fmt.Errorf("%w: %v", voice.ErrChannelGone, err)
		}
	}
	return err
}
