package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusExpired InvoiceStatus = "expired"
)

// Invoice records an intent to purchase before any external payment
// request is issued. Amount and currency come from the price table at
// creation time, never from caller input.
type Invoice struct {
	ID       string        `json:"id" gorm:"primaryKey;size:128"`
	OwnerID  int64         `json:"owner_id" gorm:"not null;index"`
	GroupID  *int64        `json:"group_id,omitempty" gorm:"index"` // target group for group/add-on plans
	PlanID   string        `json:"plan_id" gorm:"type:text;not null"`
	Amount   int64         `json:"amount" gorm:"not null"`
	Currency string        `json:"currency" gorm:"type:text;not null"`
	Status   InvoiceStatus `json:"status" gorm:"type:text;not null;index"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

// PaymentEvent exists exactly once per external charge id. The unique
// index is the final idempotence backstop under concurrent settlement.
type PaymentEvent struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	ExternalChargeID string       `json:"external_charge_id" gorm:"uniqueIndex;size:255;not null"`
	InvoiceID        string       `json:"invoice_id" gorm:"size:128;not null;index"`
	AppliedAt        time.Time    `json:"applied_at" gorm:"not null"`
}

func (PaymentEvent) TableName() string { return "payment_events" }
