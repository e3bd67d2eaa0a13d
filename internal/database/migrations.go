package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/priorityhuddle/huddle/internal/notes"
)

const migrationEnforceNoteSizeFloors = "2026-07-18_enforce_note_size_floors"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationEnforceNoteSizeFloors, apply: enforceNoteSizeFloors},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// enforceNoteSizeFloors lifts notes persisted before resize clamping existed
// up to the current minimum dimensions.
func enforceNoteSizeFloors(db *gorm.DB) error {
	if err := db.Model(&notes.Note{}).
		Where("width < ?", notes.MinWidth).
		Update("width", notes.MinWidth).Error; err != nil {
		return err
	}
	return db.Model(&notes.Note{}).
		Where("height < ?", notes.MinHeight).
		Update("height", notes.MinHeight).Error
}
