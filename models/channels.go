package models

import (
	"time"

	"gorm.io/gorm"
)

// ClickChannel is a voice channel that spawns a custom channel when joined.
type ClickChannel struct {
	gorm.Model
	ChannelID    string `json:"channel_id" gorm:"uniqueIndex"`
	GuildID      string `json:"guild_id"`
	NameTemplate string `json:"name_template"`
	NameDefault  string `json:"name_default"`
}

// CustomChannelRecord journals a custom channel created by the bot. Only
// channels with a record are ever deleted by the sweeper.
type CustomChannelRecord struct {
	ChannelID        string    `json:"channel_id" gorm:"primaryKey"`
	GuildID          string    `json:"guild_id"`
	OwnerID          string    `json:"owner_id" gorm:"index"`
	TriggerChannelID string    `json:"trigger_channel_id"`
	Name             string    `json:"name"`
	MemberLimit      int       `json:"member_limit"`
	IsPublic         bool      `json:"is_public"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
