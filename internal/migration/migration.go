package migration

import (
	auditdomain "github.com/accordhq/accord/internal/audit/domain"
	entitlementdomain "github.com/accordhq/accord/internal/entitlement/domain"
	invoicedomain "github.com/accordhq/accord/internal/invoice/domain"
	moderationdomain "github.com/accordhq/accord/internal/moderation/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run brings the schema up to date. Safe to run on every start; gorm only
// adds missing tables, columns and indexes.
func Run(db *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")
	log.Info("running schema migration")

	if err := db.AutoMigrate(
		&invoicedomain.Invoice{},
		&invoicedomain.PaymentEvent{},
		&entitlementdomain.UserEntitlement{},
		&entitlementdomain.GroupSubscription{},
		&moderationdomain.GroupSettings{},
		&moderationdomain.ModerationRecord{},
		&moderationdomain.ViolationCounter{},
		&auditdomain.AuditLog{},
	); err != nil {
		return err
	}

	log.Info("schema migration complete")
	return nil
}
