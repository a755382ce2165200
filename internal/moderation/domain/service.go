package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrInvalidThresholds = errors.New("invalid_moderation_thresholds")

type Outcome string

const (
	// OutcomeAdminExempt: admins are never evaluated, nothing is written.
	OutcomeAdminExempt Outcome = "admin_exempt"
	// OutcomeDisabled: moderation is switched off for the group.
	OutcomeDisabled Outcome = "disabled"
	// OutcomeSuppressed: group not entitled, offense logged without action.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeDuplicate: the offense id was already recorded, no mutation.
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRecorded  Outcome = "recorded"
)

// ModerationEvent is one detected offense handed in by the collaborator.
// RestrictUnavailable reports that the collaborator cannot apply a
// restriction in this group (missing permission), known before the call.
type ModerationEvent struct {
	GroupID             int64  `json:"group_id"`
	UserID              int64  `json:"user_id"`
	OffenseID           string `json:"offense_id"`
	Rule                string `json:"rule"`
	IsAdmin             bool   `json:"is_admin"`
	RestrictUnavailable bool   `json:"restrict_unavailable"`
}

// Decision tells the collaborator what happened and what to do. A mute that
// re-triggers while already muted is recorded but ApplyRestriction stays
// false; the existing restriction is never extended.
type Decision struct {
	Outcome          Outcome       `json:"outcome"`
	Action           string        `json:"action,omitempty"`
	Violations       int           `json:"violations,omitempty"`
	ApplyRestriction bool          `json:"apply_restriction"`
	MuteDuration     time.Duration `json:"mute_duration,omitempty"`
	NotifyAdmins     bool          `json:"notify_admins"`
}

// SettingsUpdate carries admin-requested changes; nil fields are untouched.
type SettingsUpdate struct {
	Enabled         *bool   `json:"enabled,omitempty"`
	Language        *string `json:"language,omitempty"`
	LanguageMode    *string `json:"language_mode,omitempty"`
	WarnThreshold   *int    `json:"warn_threshold,omitempty"`
	MuteThreshold   *int    `json:"mute_threshold,omitempty"`
	WelcomeEnabled  *bool   `json:"welcome_enabled,omitempty"`
	RulesEnabled    *bool   `json:"rules_enabled,omitempty"`
	SecurityEnabled *bool   `json:"security_enabled,omitempty"`
}

type Service interface {
	// Record runs one ladder transition for the event. Ambiguous
	// entitlement is treated as not entitled.
	Record(ctx context.Context, ev ModerationEvent) (Decision, error)
	GetOrCreateSettings(ctx context.Context, groupID int64) (*GroupSettings, error)
	UpdateSettings(ctx context.Context, groupID int64, upd SettingsUpdate) (*GroupSettings, error)
}

type Repository interface {
	GetOrCreateSettings(ctx context.Context, db *gorm.DB, defaults *GroupSettings) (*GroupSettings, error)
	SaveSettings(ctx context.Context, db *gorm.DB, settings *GroupSettings) error
	FindCounter(ctx context.Context, db *gorm.DB, groupID, userID int64) (*ViolationCounter, error)
	SaveCounter(ctx context.Context, db *gorm.DB, counter *ViolationCounter) error
	InsertRecord(ctx context.Context, db *gorm.DB, record *ModerationRecord) error
}
