package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrInvoiceNotFound       = errors.New("invoice_not_found")
	ErrInvoiceExpired        = errors.New("invoice_expired")
	ErrInvoiceNotPending     = errors.New("invoice_not_pending")
	// ErrInvoiceAlreadySettled marks a protocol violation: the invoice was
	// settled under a different charge id. Not a benign retry.
	ErrInvoiceAlreadySettled = errors.New("invoice_already_settled")
	ErrGroupRequired         = errors.New("group_required_for_plan")
	ErrInvalidToken          = errors.New("invalid_payload_token")
	ErrOwnerMismatch         = errors.New("invoice_owner_mismatch")
	ErrAmountMismatch        = errors.New("invoice_amount_mismatch")
)

type CreateInvoiceRequest struct {
	OwnerID int64
	PlanID  string
	GroupID *int64 // required for group and add-on plans
}

type CreatedInvoice struct {
	Invoice *Invoice
	// Token binds (invoice, owner, amount) for pre-checkout verification.
	Token string
}

type PrecheckoutRequest struct {
	Token     string
	InvoiceID string
	OwnerID   int64
	Amount    int64
	Currency  string
}

type SettlementResult struct {
	// FirstApplication is false when the charge id was already applied;
	// the call then performed no mutation.
	FirstApplication bool     `json:"first_application"`
	Invoice          *Invoice `json:"invoice"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (*CreatedInvoice, error)
	// ValidatePrecheckout returns nil only when the token verifies and the
	// store agrees on owner, amount, currency and liveness.
	ValidatePrecheckout(ctx context.Context, req PrecheckoutRequest) error
	// MarkPaid is the single entry point converting a confirmed external
	// payment into ledger credit, atomically and at most once per charge id.
	MarkPaid(ctx context.Context, invoiceID, externalChargeID string) (SettlementResult, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, inv *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Invoice, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id string, status InvoiceStatus) error
	InsertEvent(ctx context.Context, db *gorm.DB, event *PaymentEvent) error
	FindEventByChargeID(ctx context.Context, db *gorm.DB, chargeID string) (*PaymentEvent, error)
}
