package repository

import (
	"context"
	"errors"

	"github.com/accordhq/accord/internal/invoice/domain"
	"gorm.io/gorm"
)

type invoiceRepo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Insert(ctx context.Context, db *gorm.DB, inv *domain.Invoice) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Invoice, error) {
	if db == nil {
		db = r.db
	}
	var inv domain.Invoice
	if err := db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, db *gorm.DB, id string, status domain.InvoiceStatus) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *invoiceRepo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.PaymentEvent) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(event).Error
}

func (r *invoiceRepo) FindEventByChargeID(ctx context.Context, db *gorm.DB, chargeID string) (*domain.PaymentEvent, error) {
	if db == nil {
		db = r.db
	}
	var event domain.PaymentEvent
	if err := db.WithContext(ctx).First(&event, "external_charge_id = ?", chargeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}
