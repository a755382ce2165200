package domain

import (
	"context"
	"errors"

	"github.com/accordhq/accord/internal/pricing"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = errors.New("user_not_found")
	ErrGroupNotFound = errors.New("group_not_found")
	ErrInvalidCredit = errors.New("invalid_credit_amount")
	ErrPlanKind      = errors.New("plan_kind_mismatch")
)

// Service is the surface conversation handlers read and consume through.
type Service interface {
	GetOrCreateUser(ctx context.Context, userID int64) (*UserEntitlement, error)
	UpdateUserDefaults(ctx context.Context, userID int64, goal, tone string) error
	GrantFreeTierIfEligible(ctx context.Context, userID int64) (bool, error)
	ConsumeResolve(ctx context.Context, req ConsumeRequest) (Consumption, error)
	IsGroupEntitled(ctx context.Context, groupID int64) bool
	IsRagEntitled(ctx context.Context, groupID int64) bool
	SubscriptionInfo(ctx context.Context, groupID int64) (*GroupSubscription, error)
}

// Ledger is the settlement-only write surface. It is called exclusively
// from the invoice store's atomic settlement transaction; every method
// joins the caller's transaction.
type Ledger interface {
	CreditResolves(ctx context.Context, tx *gorm.DB, userID int64, n int) error
	ActivateGroupSubscription(ctx context.Context, tx *gorm.DB, groupID int64, plan pricing.Plan, sourceInvoiceID string) error
	ActivateRagAddon(ctx context.Context, tx *gorm.DB, groupID int64, plan pricing.Plan, sourceInvoiceID string) error
}

type Repository interface {
	GetOrCreateUser(ctx context.Context, db *gorm.DB, userID int64) (*UserEntitlement, error)
	FindUser(ctx context.Context, db *gorm.DB, userID int64) (*UserEntitlement, error)
	FindGroupSubscription(ctx context.Context, db *gorm.DB, groupID int64) (*GroupSubscription, error)
}
