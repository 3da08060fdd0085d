package voice

import "github.com/bwmarrin/discordgo"

const connectAndView = discordgo.PermissionVoiceConnect | discordgo.PermissionViewChannel

// overwritesFor computes the permission overwrites of a custom channel. The
// @everyone role shares its id with the guild.
//
// Private channels deny connect to everyone but the owner. Public channels
// allow connect to everyone; the member limit is enforced by the channel.
func overwritesFor(guildID, ownerID string, isPublic bool) []*discordgo.PermissionOverwrite {
	everyone := &discordgo.PermissionOverwrite{
		ID:   guildID,
		Type: discordgo.PermissionOverwriteTypeRole,
	}
	if isPublic {
		everyone.Allow = discordgo.PermissionVoiceConnect
	} else {
		everyone.Deny = discordgo.PermissionVoiceConnect
	}

	owner := &discordgo.PermissionOverwrite{
		ID:    ownerID,
		Type:  discordgo.PermissionOverwriteTypeMember,
		Allow: connectAndView,
	}
	return []*discordgo.PermissionOverwrite{everyone, owner}
}
