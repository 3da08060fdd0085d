package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Haibread/voicekeep/models"
	"github.com/Haibread/voicekeep/voice"
	"gorm.io/gorm"
)

// TriggerRepository stores click-to-create channels.
type TriggerRepository struct {
	db *gorm.DB
}

func NewTriggerRepository(db *gorm.DB) *TriggerRepository {
	return &TriggerRepository{db: db}
}

func (r *TriggerRepository) Trigger(ctx context.Context, channelID string) (*voice.Trigger, error) {
	var channel models.ClickChannel
	query := r.db.WithContext(ctx).Where("channel_id = ?", channelID).First(&channel)
	if query.Error != nil {
		if errors.Is(query.Error, gorm.ErrRecordNotFound) {
			return nil, voice.ErrUnknownTrigger
		}
		return nil, fmt.Errorf("error while getting click channel %v: %w", channelID, query.Error)
	}
	t := toTrigger(channel)
	return &t, nil
}

// Register creates the click channel or updates its naming settings.
func (r *TriggerRepository) Register(ctx context.Context, t voice.Trigger) error {
	if t.ChannelID == "" {
		return errors.New("click channel id is required")
	}
	if err := voice.ValidateTemplate(t.NameTemplate); err != nil {
		return fmt.Errorf("invalid name template for %v: %w", t.ChannelID, err)
	}

	var channel models.ClickChannel
	query := r.db.WithContext(ctx).
		Where(models.ClickChannel{ChannelID: t.ChannelID}).
		Assign(map[string]interface{}{
			"guild_id":      t.GuildID,
			"name_template": t.NameTemplate,
			"name_default":  t.NameDefault,
		}).
		FirstOrCreate(&channel)
	if query.Error != nil {
		return fmt.Errorf("error while registering click channel %v: %w", t.ChannelID, query.Error)
	}
	log.Debugf("Registered click channel %v on guild %v", t.ChannelID, t.GuildID)
	return nil
}

func (r *TriggerRepository) List(ctx context.Context) ([]voice.Trigger, error) {
	var channels []models.ClickChannel
	if err := r.db.WithContext(ctx).Order("id").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("error while listing click channels: %w", err)
	}
	out := make([]voice.Trigger, 0, len(channels))
	for _, c := range channels {
		out = append(out, toTrigger(c))
	}
	return out, nil
}

func toTrigger(c models.ClickChannel) voice.Trigger {
	return voice.Trigger{
		ChannelID:    c.ChannelID,
		GuildID:      c.GuildID,
		NameTemplate: c.NameTemplate,
		NameDefault:  c.NameDefault,
	}
}
