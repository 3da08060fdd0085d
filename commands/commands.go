package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/Haibread/voicekeep/logging"
	"github.com/Haibread/voicekeep/voice"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var log *zap.SugaredLogger

func init() {
	log = logging.InitLogger()
}

var (
	minLimit    = 0.0
	manageRoles = int64(discordgo.PermissionManageRoles)

	limitOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "limit",
		Description: "Limit number of members who can join, 0 for unlimited",
		MinValue:    &minLimit,
		MaxValue:    99,
	}
	publicOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "public",
		Description: "Let everyone join the channel",
	}

	botCommands = []*discordgo.ApplicationCommand{
		{
			Type:        discordgo.ChatApplicationCommand,
			Name:        "ping",
			Description: "Basic command",
		},
		{
			Type:        discordgo.ChatApplicationCommand,
			Name:        "voice",
			Description: "Control custom voice channels",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Create a new voice channel, you have a short while to join it",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the channel", Required: true},
						limitOption,
						publicOption,
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "edit",
					Description: "Edit the name, limit or visibility of the voice channel you own",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "New name of the channel"},
						limitOption,
						publicOption,
					},
				},
			},
		},
		{
			Type:                     discordgo.ChatApplicationCommand,
			Name:                     "roles",
			Description:              "Synchronize roster roles",
			DefaultMemberPermissions: &manageRoles,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "sync",
					Description: "Grant the guild roles matching a member's roster roles",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to update", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "roster", Description: "Comma separated roster roles", Required: true},
					},
				},
			},
		},
	}
)

// VoiceManager is the part of voice.Manager the commands drive.
type VoiceManager interface {
	CreateChannel(ctx context.Context, triggerChannelID, requesterID, name string, limit int, isPublic bool) (voice.CustomChannel, error)
	EditChannel(ctx context.Context, requesterID string, req voice.EditRequest) (voice.CustomChannel, error)
}

// RoleSync maps roster roles and grants the result.
type RoleSync interface {
	Map(rosterRoles []string) []string
	Grant(ctx context.Context, guildID, userID string, roleIDs []string) (bool, error)
}

// Settings is read on every command so config reloads apply immediately.
type Settings interface {
	ClickChannelID() string
	CommandChannelAllowed(channelID string) bool
}

type Commands struct {
	voice    VoiceManager
	roles    RoleSync
	settings Settings
	ctx      context.Context

	handlers map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
}

func New(ctx context.Context, vm VoiceManager, rs RoleSync, settings Settings) *Commands {
	c := &Commands{voice: vm, roles: rs, settings: settings, ctx: ctx}
	c.handlers = map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"ping": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			Ping(s, i)
		},
		"voice": c.voiceCommand,
		"roles": c.rolesCommand,
	}
	return c
}

func (c *Commands) Register(dg *discordgo.Session) error {
	log.Info("Adding commands")
	if _, err := dg.ApplicationCommandBulkOverwrite(dg.State.User.ID, "", botCommands); err != nil {
		return fmt.Errorf("cannot create commands: %w", err)
	}
	dg.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if h, ok := c.handlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	})
	return nil
}

// CommandAPI lists and deletes application commands; *discordgo.Session
// satisfies it.
type CommandAPI interface {
	ApplicationCommands(appID, guildID string) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string) error
}

// Unregister deletes the commands this bot registers and leaves any other
// command of the application alone. A failed delete does not stop the rest.
func Unregister(api CommandAPI, appID string) (int, error) {
	existing, err := api.ApplicationCommands(appID, "")
	if err != nil {
		return 0, fmt.Errorf("list commands: %w", err)
	}

	ours := make(map[string]bool, len(botCommands))
	for _, cmd := range botCommands {
		ours[cmd.Name] = true
	}

	removed := 0
	var errs []error
	for _, cmd := range existing {
		if !ours[cmd.Name] {
			continue
		}
		if err := api.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete command %s: %w", cmd.Name, err))
			continue
		}
		log.Debugf("Deleted command %s", cmd.Name)
		removed++
	}
	return removed, errors.Join(errs...)
}
