package database

import (
	"fmt"

	"github.com/Haibread/voicekeep/logging"
	"github.com/Haibread/voicekeep/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log *zap.SugaredLogger

func init() {
	log = logging.InitLogger()
}

// Open connects to the sqlite database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %v: %w", path, err)
	}

	if err := db.AutoMigrate(&models.ClickChannel{}, &models.CustomChannelRecord{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	log.Debugf("Database %v ready", path)
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
