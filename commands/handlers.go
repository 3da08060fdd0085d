package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/Haibread/voicekeep/voice"
	"github.com/bwmarrin/discordgo"
)

const (
	thumbsUp   = "👍"
	thumbsDown = "👎"
)

func Ping(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Pong",
		},
	})
}

// outcome is the acknowledgement sent back for a command.
type outcome struct {
	ok      bool
	message string
}

func (o outcome) String() string {
	if o.ok {
		return strings.TrimSpace(thumbsUp + " " + o.message)
	}
	return strings.TrimSpace(thumbsDown + " " + o.message)
}

func (c *Commands) voiceCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	c.deferred(s, i, func(ctx context.Context) outcome {
		switch sub.Name {
		case "add":
			return c.voiceAdd(ctx, i.ChannelID, i.Member.User.ID, sub.Options)
		case "edit":
			return c.voiceEdit(ctx, i.ChannelID, i.Member.User.ID, sub.Options)
		}
		return outcome{message: "Unknown command"}
	})
}

func (c *Commands) rolesCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 || data.Options[0].Name != "sync" {
		return
	}
	opts := optionMap(data.Options[0].Options)
	user, roster := opts["user"], opts["roster"]
	if user == nil || roster == nil {
		return
	}
	userID := user.UserValue(nil).ID
	c.deferred(s, i, func(ctx context.Context) outcome {
		return c.rolesSync(ctx, i.GuildID, userID, roster.StringValue())
	})
}

func (c *Commands) voiceAdd(ctx context.Context, channelID, userID string, options []*discordgo.ApplicationCommandInteractionDataOption) outcome {
	if !c.settings.CommandChannelAllowed(channelID) {
		return outcome{message: "Voice commands are not allowed in this channel"}
	}
	name, limit, public := parseAdd(options)
	ch, err := c.voice.CreateChannel(ctx, c.settings.ClickChannelID(), userID, name, limit, public)
	if err != nil {
		return failure(err, "Couldn't add a voice channel")
	}
	return outcome{ok: true, message: "Created <#" + ch.ChannelID + ">"}
}

func (c *Commands) voiceEdit(ctx context.Context, channelID, userID string, options []*discordgo.ApplicationCommandInteractionDataOption) outcome {
	if !c.settings.CommandChannelAllowed(channelID) {
		return outcome{message: "Voice commands are not allowed in this channel"}
	}
	req := parseEdit(options)
	if req.Name == nil && req.Limit == nil && req.IsPublic == nil {
		return outcome{message: "Nothing to change"}
	}
	if _, err := c.voice.EditChannel(ctx, userID, req); err != nil {
		return failure(err, "Couldn't edit a voice channel")
	}
	return outcome{ok: true}
}

func (c *Commands) rolesSync(ctx context.Context, guildID, userID, roster string) outcome {
	var rosterRoles []string
	for _, r := range strings.Split(roster, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rosterRoles = append(rosterRoles, r)
		}
	}
	roleIDs := c.roles.Map(rosterRoles)
	if len(roleIDs) == 0 {
		return outcome{message: "No matching roles"}
	}
	ok, err := c.roles.Grant(ctx, guildID, userID, roleIDs)
	if err != nil {
		log.Warnf("Couldn't grant roles to %v: %v", userID, err)
		return outcome{message: "Couldn't grant roles"}
	}
	if !ok {
		return outcome{message: "Some roles are not defined on this server"}
	}
	return outcome{ok: true}
}

// failure turns manager errors into user facing messages. Owner policy
// violations are expected and not logged as warnings.
func failure(err error, logMsg string) outcome {
	switch {
	case errors.Is(err, voice.ErrAlreadyOwnsChannel):
		return outcome{message: "You already own a voice channel"}
	case errors.Is(err, voice.ErrNoOwnedChannel):
		return outcome{message: "You don't own a voice channel"}
	case errors.Is(err, voice.ErrNotJoinedInTime):
		return outcome{message: "You didn't join the channel in time"}
	case errors.Is(err, voice.ErrInvalidLimit):
		return outcome{message: "The limit can't be negative"}
	case errors.Is(err, voice.ErrUnknownTrigger):
		log.Warnf("%s: click channel is not configured: %v", logMsg, err)
		return outcome{message: "Custom voice channels are not set up"}
	}
	log.Warnf("%s: %v", logMsg, err)
	return outcome{message: "Something went wrong"}
}

// deferred acknowledges the interaction right away and sends the outcome as a
// follow-up, since creating a channel can take the whole grace window.
func (c *Commands) deferred(s *discordgo.Session, i *discordgo.InteractionCreate, run func(ctx context.Context) outcome) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.Error(err)
		return
	}

	go func() {
		res := run(c.ctx)
		if _, err := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{Content: res.String()}); err != nil {
			log.Error(err)
		}
	}()
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, o := range options {
		m[o.Name] = o
	}
	return m
}

func parseAdd(options []*discordgo.ApplicationCommandInteractionDataOption) (name string, limit int, public bool) {
	opts := optionMap(options)
	if o, ok := opts["name"]; ok {
		name = strings.TrimSpace(o.StringValue())
	}
	if o, ok := opts["limit"]; ok {
		limit = int(o.IntValue())
	}
	if o, ok := opts["public"]; ok {
		public = o.BoolValue()
	}
	return name, limit, public
}

func parseEdit(options []*discordgo.ApplicationCommandInteractionDataOption) voice.EditRequest {
	var req voice.EditRequest
	opts := optionMap(options)
	if o, ok := opts["name"]; ok {
		if name := strings.TrimSpace(o.StringValue()); name != "" {
			req.Name = &name
		}
	}
	if o, ok := opts["limit"]; ok {
		limit := int(o.IntValue())
		req.Limit = &limit
	}
	if o, ok := opts["public"]; ok {
		public := o.BoolValue()
		req.IsPublic = &public
	}
	return req
}
