package repository

import (
	"context"
	"errors"

	"github.com/accordhq/accord/internal/moderation/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type moderationRepo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &moderationRepo{db: db}
}

func (r *moderationRepo) GetOrCreateSettings(ctx context.Context, db *gorm.DB, defaults *domain.GroupSettings) (*domain.GroupSettings, error) {
	if db == nil {
		db = r.db
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(defaults).Error; err != nil {
		return nil, err
	}
	var settings domain.GroupSettings
	if err := db.WithContext(ctx).First(&settings, "group_id = ?", defaults.GroupID).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *moderationRepo) SaveSettings(ctx context.Context, db *gorm.DB, settings *domain.GroupSettings) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Save(settings).Error
}

func (r *moderationRepo) FindCounter(ctx context.Context, db *gorm.DB, groupID, userID int64) (*domain.ViolationCounter, error) {
	if db == nil {
		db = r.db
	}
	var counter domain.ViolationCounter
	err := db.WithContext(ctx).
		First(&counter, "group_id = ? AND user_id = ?", groupID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &counter, nil
}

func (r *moderationRepo) SaveCounter(ctx context.Context, db *gorm.DB, counter *domain.ViolationCounter) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Save(counter).Error
}

func (r *moderationRepo) InsertRecord(ctx context.Context, db *gorm.DB, record *domain.ModerationRecord) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(record).Error
}
