package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	auditdomain "github.com/accordhq/accord/internal/audit/domain"
	"github.com/accordhq/accord/internal/clock"
	"github.com/accordhq/accord/internal/config"
	entitlementdomain "github.com/accordhq/accord/internal/entitlement/domain"
	"github.com/accordhq/accord/internal/invoice/domain"
	"github.com/accordhq/accord/internal/observability"
	"github.com/accordhq/accord/internal/payload"
	"github.com/accordhq/accord/internal/pricing"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Cfg     config.Config
	Signer  *payload.Signer
	Repo    domain.Repository
	Ledger  entitlementdomain.Ledger
	Audit   auditdomain.Repository
	Metrics *observability.Metrics `optional:"true"`
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	cfg     config.Config
	signer  *payload.Signer
	repo    domain.Repository
	ledger  entitlementdomain.Ledger
	audit   auditdomain.Repository
	metrics *observability.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("invoice.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		cfg:     p.Cfg,
		signer:  p.Signer,
		repo:    p.Repo,
		ledger:  p.Ledger,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.CreatedInvoice, error) {
	plan, err := pricing.Lookup(req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.Kind != pricing.PlanKindPersonal && req.GroupID == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupRequired, plan.ID)
	}

	now := s.clock.Now(ctx)
	inv := &domain.Invoice{
		ID:        "inv_" + s.genID.Generate().String(),
		OwnerID:   req.OwnerID,
		GroupID:   req.GroupID,
		PlanID:    plan.ID,
		Amount:    plan.Amount,
		Currency:  pricing.Currency,
		Status:    domain.InvoiceStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, nil, inv); err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID),
		zap.Int64("owner_id", inv.OwnerID),
		zap.String("plan_id", inv.PlanID))

	return &domain.CreatedInvoice{
		Invoice: inv,
		Token:   s.signer.Sign(inv.ID, inv.OwnerID, inv.Amount),
	}, nil
}

// ValidatePrecheckout authenticates the callback against the signer, then
// lets the store rule on liveness. The token alone never authorizes a
// settlement.
func (s *service) ValidatePrecheckout(ctx context.Context, req domain.PrecheckoutRequest) error {
	if !s.signer.Verify(req.Token, req.InvoiceID, req.OwnerID, req.Amount) {
		return domain.ErrInvalidToken
	}

	inv, err := s.repo.FindByID(ctx, nil, req.InvoiceID)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrInvoiceNotFound
	}
	if inv.OwnerID != req.OwnerID {
		return domain.ErrOwnerMismatch
	}
	if inv.Amount != req.Amount || (req.Currency != "" && inv.Currency != req.Currency) {
		return domain.ErrAmountMismatch
	}
	if inv.Status != domain.InvoiceStatusPending {
		return domain.ErrInvoiceNotPending
	}
	if s.expired(ctx, inv) {
		return domain.ErrInvoiceExpired
	}
	return nil
}

func (s *service) MarkPaid(ctx context.Context, invoiceID, externalChargeID string) (domain.SettlementResult, error) {
	var result domain.SettlementResult
	var expiredNow bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrInvoiceNotFound
		}

		switch inv.Status {
		case domain.InvoiceStatusPaid:
			event, err := s.repo.FindEventByChargeID(ctx, tx, externalChargeID)
			if err != nil {
				return err
			}
			if event != nil && event.InvoiceID == inv.ID {
				result = domain.SettlementResult{FirstApplication: false, Invoice: inv}
				return nil
			}
			return fmt.Errorf("%w: invoice %s", domain.ErrInvoiceAlreadySettled, inv.ID)
		case domain.InvoiceStatusExpired:
			return domain.ErrInvoiceExpired
		}

		if s.expired(ctx, inv) {
			// Returning an error here would roll the flip back, so the
			// transaction commits and the caller's error is set after.
			expiredNow = true
			return s.repo.UpdateStatus(ctx, tx, inv.ID, domain.InvoiceStatusExpired)
		}

		event := &domain.PaymentEvent{
			ID:               s.genID.Generate(),
			ExternalChargeID: externalChargeID,
			InvoiceID:        inv.ID,
			AppliedAt:        s.clock.Now(ctx),
		}
		if err := s.repo.InsertEvent(ctx, tx, event); err != nil {
			// The unique index on external_charge_id is the last line of
			// defense when two settlements race: the loser lands here and
			// the whole transaction rolls back.
			if isDuplicateKey(err) {
				existing, lookupErr := s.repo.FindEventByChargeID(ctx, tx, externalChargeID)
				if lookupErr != nil {
					return lookupErr
				}
				if existing != nil && existing.InvoiceID != inv.ID {
					return fmt.Errorf("%w: charge already applied to another invoice", domain.ErrInvoiceAlreadySettled)
				}
				// The winner committed the paid flip; report the status the
				// caller will observe, not this transaction's snapshot.
				inv.Status = domain.InvoiceStatusPaid
				result = domain.SettlementResult{FirstApplication: false, Invoice: inv}
				return errDuplicateCharge
			}
			return err
		}

		if err := s.repo.UpdateStatus(ctx, tx, inv.ID, domain.InvoiceStatusPaid); err != nil {
			return err
		}
		inv.Status = domain.InvoiceStatusPaid

		if err := s.credit(ctx, tx, inv); err != nil {
			return err
		}
		if err := s.appendSettlementAudit(ctx, tx, inv, externalChargeID); err != nil {
			return err
		}

		result = domain.SettlementResult{FirstApplication: true, Invoice: inv}
		return nil
	})
	if errors.Is(err, errDuplicateCharge) {
		err = nil
	}
	if err != nil {
		return domain.SettlementResult{}, err
	}
	if expiredNow {
		s.log.Warn("settlement arrived after invoice ttl", zap.String("invoice_id", invoiceID))
		return domain.SettlementResult{}, domain.ErrInvoiceExpired
	}

	if s.metrics != nil {
		if result.FirstApplication {
			s.metrics.SettlementsApplied.Inc()
		} else {
			s.metrics.SettlementsDuplicate.Inc()
		}
	}
	if result.FirstApplication {
		s.log.Info("settlement applied",
			zap.String("invoice_id", invoiceID),
			zap.String("charge_id_suffix", chargeSuffix(externalChargeID)))
	} else {
		s.log.Warn("duplicate settlement ignored",
			zap.String("invoice_id", invoiceID),
			zap.String("charge_id_suffix", chargeSuffix(externalChargeID)))
	}
	return result, nil
}

// errDuplicateCharge aborts the settlement transaction so the duplicate
// event insert rolls back; it is swallowed above and surfaces as
// FirstApplication=false.
var errDuplicateCharge = errors.New("duplicate_charge_rollback")

func (s *service) credit(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) error {
	plan, err := pricing.Lookup(inv.PlanID)
	if err != nil {
		return err
	}

	switch plan.Kind {
	case pricing.PlanKindPersonal:
		return s.ledger.CreditResolves(ctx, tx, inv.OwnerID, plan.Resolves)
	case pricing.PlanKindGroup:
		if inv.GroupID == nil {
			return fmt.Errorf("%w: %s", domain.ErrGroupRequired, plan.ID)
		}
		return s.ledger.ActivateGroupSubscription(ctx, tx, *inv.GroupID, plan, inv.ID)
	case pricing.PlanKindAddon:
		if inv.GroupID == nil {
			return fmt.Errorf("%w: %s", domain.ErrGroupRequired, plan.ID)
		}
		return s.ledger.ActivateRagAddon(ctx, tx, *inv.GroupID, plan, inv.ID)
	default:
		return fmt.Errorf("%w: %s", pricing.ErrPlanUnknown, plan.ID)
	}
}

func (s *service) appendSettlementAudit(ctx context.Context, tx *gorm.DB, inv *domain.Invoice, chargeID string) error {
	detail, err := json.Marshal(map[string]any{
		"invoice_id":       inv.ID,
		"plan_id":          inv.PlanID,
		"amount":           inv.Amount,
		"currency":         inv.Currency,
		"charge_id_suffix": chargeSuffix(chargeID),
	})
	if err != nil {
		return err
	}
	return s.audit.Append(ctx, tx, &auditdomain.AuditLog{
		ID:        s.genID.Generate(),
		Kind:      auditdomain.KindPayment,
		GroupID:   inv.GroupID,
		UserID:    &inv.OwnerID,
		Action:    "settlement_applied",
		Detail:    datatypes.JSON(detail),
		CreatedAt: s.clock.Now(ctx),
	})
}

func (s *service) expired(ctx context.Context, inv *domain.Invoice) bool {
	return s.clock.Now(ctx).Sub(inv.CreatedAt) > s.cfg.InvoiceTTL
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}

// chargeSuffix keeps full charge ids out of logs and audit detail.
func chargeSuffix(chargeID string) string {
	if len(chargeID) <= 6 {
		return chargeID
	}
	return chargeID[len(chargeID)-6:]
}
