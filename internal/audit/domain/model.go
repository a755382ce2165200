package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	KindPayment    = "payment"
	KindModeration = "moderation"
)

// AuditLog is append-only: no update or delete path exists outside the
// retention sweep.
type AuditLog struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	Kind      string         `json:"kind" gorm:"type:text;not null;index"`
	GroupID   *int64         `json:"group_id,omitempty" gorm:"index"`
	UserID    *int64         `json:"user_id,omitempty" gorm:"index"`
	Action    string         `json:"action" gorm:"type:text;not null"`
	Detail    datatypes.JSON `json:"detail" gorm:"type:json"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type Repository interface {
	Append(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	RecentModeration(ctx context.Context, db *gorm.DB, groupID int64, limit int) ([]AuditLog, error)
}

type Service interface {
	Append(ctx context.Context, entry *AuditLog) error
	RecentModerationActions(ctx context.Context, groupID int64, limit int) ([]AuditLog, error)
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
}
