package database

import (
	"context"
	"fmt"

	"github.com/Haibread/voicekeep/models"
	"github.com/Haibread/voicekeep/voice"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Journal persists custom channels so they can be reclaimed after a restart.
type Journal struct {
	db *gorm.DB
}

func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Save(ctx context.Context, ch voice.CustomChannel) error {
	rec := models.CustomChannelRecord{
		ChannelID:        ch.ChannelID,
		GuildID:          ch.GuildID,
		OwnerID:          ch.OwnerID,
		TriggerChannelID: ch.TriggerChannelID,
		Name:             ch.Name,
		MemberLimit:      ch.MemberLimit,
		IsPublic:         ch.IsPublic,
		CreatedAt:        ch.CreatedAt,
	}
	err := j.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("error while saving channel %v: %w", ch.ChannelID, err)
	}
	return nil
}

func (j *Journal) Delete(ctx context.Context, channelID string) error {
	err := j.db.WithContext(ctx).Where("channel_id = ?", channelID).Delete(&models.CustomChannelRecord{}).Error
	if err != nil {
		return fmt.Errorf("error while deleting channel %v: %w", channelID, err)
	}
	return nil
}

func (j *Journal) LoadAll(ctx context.Context) ([]voice.CustomChannel, error) {
	var records []models.CustomChannelRecord
	if err := j.db.WithContext(ctx).Order("created_at").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("error while loading channels: %w", err)
	}
	out := make([]voice.CustomChannel, 0, len(records))
	for _, r := range records {
		out = append(out, voice.CustomChannel{
			ChannelID:        r.ChannelID,
			GuildID:          r.GuildID,
			OwnerID:          r.OwnerID,
			TriggerChannelID: r.TriggerChannelID,
			Name:             r.Name,
			MemberLimit:      r.MemberLimit,
			IsPublic:         r.IsPublic,
			CreatedAt:        r.CreatedAt,
		})
	}
	return out, nil
}
