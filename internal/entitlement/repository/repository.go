package repository

import (
	"context"
	"errors"

	"github.com/accordhq/accord/internal/entitlement/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type entitlementRepo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &entitlementRepo{db: db}
}

func (r *entitlementRepo) GetOrCreateUser(ctx context.Context, db *gorm.DB, userID int64) (*domain.UserEntitlement, error) {
	if db == nil {
		db = r.db
	}
	// Insert-or-ignore keeps concurrent first contacts from racing each
	// other; the follow-up read returns whichever row won.
	row := domain.UserEntitlement{UserID: userID}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, err
	}
	return r.FindUser(ctx, db, userID)
}

func (r *entitlementRepo) FindUser(ctx context.Context, db *gorm.DB, userID int64) (*domain.UserEntitlement, error) {
	if db == nil {
		db = r.db
	}
	var user domain.UserEntitlement
	if err := db.WithContext(ctx).First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *entitlementRepo) FindGroupSubscription(ctx context.Context, db *gorm.DB, groupID int64) (*domain.GroupSubscription, error) {
	if db == nil {
		db = r.db
	}
	var sub domain.GroupSubscription
	if err := db.WithContext(ctx).First(&sub, "group_id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}
