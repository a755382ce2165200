package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// GroupSettings is created lazily with defaults on first access and only
// ever mutated by admin operations.
type GroupSettings struct {
	GroupID         int64     `json:"group_id" gorm:"primaryKey"`
	Enabled         bool      `json:"enabled" gorm:"not null"`
	Language        string    `json:"language" gorm:"type:text;not null"`
	LanguageMode    string    `json:"language_mode" gorm:"type:text;not null"`
	WarnThreshold   int       `json:"warn_threshold" gorm:"not null"`
	MuteThreshold   int       `json:"mute_threshold" gorm:"not null"`
	WelcomeEnabled  bool      `json:"welcome_enabled" gorm:"not null"`
	RulesEnabled    bool      `json:"rules_enabled" gorm:"not null"`
	SecurityEnabled bool      `json:"security_enabled" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (GroupSettings) TableName() string { return "group_settings" }

const (
	ActionNotice     = "notice"
	ActionWarn       = "warn"
	ActionMute       = "mute"
	ActionMuteFailed = "mute_failed"
	ActionSuppressed = "suppressed"
)

// ModerationRecord is append-only. The unique (group_id, offense_id) index
// makes a transition idempotent per triggering message.
type ModerationRecord struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	GroupID   int64          `json:"group_id" gorm:"not null;uniqueIndex:idx_moderation_offense"`
	UserID    int64          `json:"user_id" gorm:"not null;index"`
	OffenseID string         `json:"offense_id" gorm:"size:128;not null;uniqueIndex:idx_moderation_offense"`
	Rule      string         `json:"rule" gorm:"type:text;not null"`
	Action    string         `json:"action" gorm:"type:text;not null"`
	Meta      datatypes.JSON `json:"meta" gorm:"type:json"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null;index"`
}

func (ModerationRecord) TableName() string { return "moderation_records" }

// ViolationCounter is the rolling per (group, user) ladder position. It is
// reset by the cool-down, never decremented.
type ViolationCounter struct {
	GroupID         int64     `json:"group_id" gorm:"primaryKey"`
	UserID          int64     `json:"user_id" gorm:"primaryKey"`
	Count           int       `json:"count" gorm:"not null"`
	LastViolationAt time.Time `json:"last_violation_at" gorm:"not null;index"`
}

func (ViolationCounter) TableName() string { return "violation_counters" }
