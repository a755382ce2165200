package repository

import (
	"context"

	"github.com/accordhq/accord/internal/audit/domain"
	"gorm.io/gorm"
)

type auditRepo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Append(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepo) RecentModeration(ctx context.Context, db *gorm.DB, groupID int64, limit int) ([]domain.AuditLog, error) {
	if db == nil {
		db = r.db
	}
	var entries []domain.AuditLog
	err := db.WithContext(ctx).
		Where("kind = ? AND group_id = ?", domain.KindModeration, groupID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
