package domain

import (
	"time"
)

// UserEntitlement is the per-user ledger row. ResolvesRemaining is mutated
// only by settlement credits and guarded decrements; it can never observe
// a negative value.
type UserEntitlement struct {
	UserID             int64      `json:"user_id" gorm:"primaryKey"`
	ResolvesRemaining  int        `json:"resolves_remaining" gorm:"not null;default:0"`
	FreeTierLastUsedAt *time.Time `json:"free_tier_last_used_at"`
	DefaultGoal        string     `json:"default_goal" gorm:"type:text"`
	DefaultTone        string     `json:"default_tone" gorm:"type:text"`

	// One free retry after a paid resolve. Single-use, non-stacking:
	// set together on paid consumption, cleared together everywhere else.
	LastResolveWasPaid bool `json:"last_resolve_was_paid" gorm:"not null;default:false"`
	FreeRetryAvailable bool `json:"free_retry_available" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserEntitlement) TableName() string { return "user_entitlements" }

// GroupSubscription records a group's paid moderation service. Liveness is
// always computed from ActiveUntil against the clock, never cached.
type GroupSubscription struct {
	GroupID         int64      `json:"group_id" gorm:"primaryKey"`
	PlanTier        string     `json:"plan_tier" gorm:"type:text;not null"`
	ActiveUntil     *time.Time `json:"active_until"` // nil = lifetime
	RagActiveUntil  *time.Time `json:"rag_active_until"`
	SourceInvoiceID string     `json:"source_invoice_id" gorm:"type:text;not null"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (GroupSubscription) TableName() string { return "group_subscriptions" }

const (
	SourcePaid     = "paid"
	SourceFreeTier = "free_tier"
	SourceRetry    = "retry"
)

type ConsumeRequest struct {
	UserID int64
	Tier   string
	// Retry marks a re-run of the user's previous input; it may spend the
	// single-use free retry instead of the paid balance.
	Retry bool
}

// Consumption is a negative-capable outcome, not an error: a refusal is a
// normal result the conversation layer renders.
type Consumption struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Source    string `json:"source,omitempty"`
}
