package service

import (
	"context"
	"fmt"

	"github.com/accordhq/accord/internal/clock"
	"github.com/accordhq/accord/internal/config"
	"github.com/accordhq/accord/internal/entitlement/domain"
	"github.com/accordhq/accord/internal/observability"
	"github.com/accordhq/accord/internal/pricing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Cfg     config.Config
	Repo    domain.Repository
	Metrics *observability.Metrics `optional:"true"`
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	cfg     config.Config
	repo    domain.Repository
	metrics *observability.Metrics
}

// NewService builds both the read/consume surface and the settlement-only
// ledger from the same state.
func NewService(p ServiceParam) domain.Service {
	return newService(p)
}

func NewLedger(p ServiceParam) domain.Ledger {
	return newService(p)
}

func newService(p ServiceParam) *service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("entitlement.service"),
		clock:   p.Clock,
		cfg:     p.Cfg,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *service) GetOrCreateUser(ctx context.Context, userID int64) (*domain.UserEntitlement, error) {
	return s.repo.GetOrCreateUser(ctx, nil, userID)
}

func (s *service) UpdateUserDefaults(ctx context.Context, userID int64, goal, tone string) error {
	if _, err := s.repo.GetOrCreateUser(ctx, nil, userID); err != nil {
		return err
	}
	updates := map[string]any{}
	if goal != "" {
		updates["default_goal"] = goal
	}
	if tone != "" {
		updates["default_tone"] = tone
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&domain.UserEntitlement{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

// GrantFreeTierIfEligible grants at most one free unit per rolling window.
// The guarded UPDATE is the check-and-set: two concurrent calls race on the
// same row and exactly one sees RowsAffected == 1.
func (s *service) GrantFreeTierIfEligible(ctx context.Context, userID int64) (bool, error) {
	var granted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := s.grantFreeTier(ctx, tx, userID)
		granted = g
		return err
	})
	return granted, err
}

func (s *service) grantFreeTier(ctx context.Context, tx *gorm.DB, userID int64) (bool, error) {
	if _, err := s.repo.GetOrCreateUser(ctx, tx, userID); err != nil {
		return false, err
	}
	now := s.clock.Now(ctx)
	cutoff := now.Add(-s.cfg.FreeTierWindow)

	res := tx.WithContext(ctx).Model(&domain.UserEntitlement{}).
		Where("user_id = ? AND (free_tier_last_used_at IS NULL OR free_tier_last_used_at <= ?)", userID, cutoff).
		Updates(map[string]any{
			"free_tier_last_used_at": now,
			"last_resolve_was_paid":  false,
			"free_retry_available":   false,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *service) ConsumeResolve(ctx context.Context, req domain.ConsumeRequest) (domain.Consumption, error) {
	var out domain.Consumption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.repo.GetOrCreateUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		if req.Retry {
			ok, err := s.spendFreeRetry(ctx, tx, req.UserID)
			if err != nil {
				return err
			}
			if ok {
				out = domain.Consumption{Allowed: true, Remaining: user.ResolvesRemaining, Source: domain.SourceRetry}
				return nil
			}
			// No retry credit left: fall through to the paid balance.
			return s.consumePaid(ctx, tx, req.UserID, &out)
		}

		if req.Tier == s.cfg.FreeTierGoal {
			granted, err := s.grantFreeTier(ctx, tx, req.UserID)
			if err != nil {
				return err
			}
			if granted {
				out = domain.Consumption{Allowed: true, Remaining: user.ResolvesRemaining, Source: domain.SourceFreeTier}
				return nil
			}
		}

		return s.consumePaid(ctx, tx, req.UserID, &out)
	})
	if err != nil {
		return domain.Consumption{}, err
	}

	if s.metrics != nil {
		if out.Allowed {
			s.metrics.ResolvesConsumed.WithLabelValues(out.Source).Inc()
		} else {
			s.metrics.ResolvesDenied.Inc()
		}
	}
	return out, nil
}

// consumePaid decrements the balance only while it is positive; the WHERE
// clause is what keeps the ledger from ever going negative.
func (s *service) consumePaid(ctx context.Context, tx *gorm.DB, userID int64, out *domain.Consumption) error {
	res := tx.WithContext(ctx).Model(&domain.UserEntitlement{}).
		Where("user_id = ? AND resolves_remaining > 0", userID).
		Updates(map[string]any{
			"resolves_remaining":    gorm.Expr("resolves_remaining - 1"),
			"last_resolve_was_paid": true,
			"free_retry_available":  true,
		})
	if res.Error != nil {
		return res.Error
	}

	user, err := s.repo.FindUser(ctx, tx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	if res.RowsAffected == 1 {
		*out = domain.Consumption{Allowed: true, Remaining: user.ResolvesRemaining, Source: domain.SourcePaid}
		return nil
	}
	*out = domain.Consumption{Allowed: false, Remaining: user.ResolvesRemaining}
	return nil
}

func (s *service) spendFreeRetry(ctx context.Context, tx *gorm.DB, userID int64) (bool, error) {
	res := tx.WithContext(ctx).Model(&domain.UserEntitlement{}).
		Where("user_id = ? AND free_retry_available = ? AND last_resolve_was_paid = ?", userID, true, true).
		Update("free_retry_available", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IsGroupEntitled computes liveness from the stored expiry. Any read error
// fails closed: moderation must never fire on ambiguous entitlement.
func (s *service) IsGroupEntitled(ctx context.Context, groupID int64) bool {
	sub, err := s.repo.FindGroupSubscription(ctx, nil, groupID)
	if err != nil {
		s.log.Error("group subscription read failed, treating as unentitled",
			zap.Int64("group_id", groupID), zap.Error(err))
		return false
	}
	if sub == nil {
		return false
	}
	if sub.ActiveUntil == nil {
		return true
	}
	return sub.ActiveUntil.After(s.clock.Now(ctx))
}

func (s *service) IsRagEntitled(ctx context.Context, groupID int64) bool {
	if !s.IsGroupEntitled(ctx, groupID) {
		return false
	}
	sub, err := s.repo.FindGroupSubscription(ctx, nil, groupID)
	if err != nil || sub == nil || sub.RagActiveUntil == nil {
		return false
	}
	return sub.RagActiveUntil.After(s.clock.Now(ctx))
}

func (s *service) SubscriptionInfo(ctx context.Context, groupID int64) (*domain.GroupSubscription, error) {
	sub, err := s.repo.FindGroupSubscription(ctx, nil, groupID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrGroupNotFound
	}
	return sub, nil
}

// CreditResolves implements domain.Ledger. Called only from the invoice
// settlement transaction.
func (s *service) CreditResolves(ctx context.Context, tx *gorm.DB, userID int64, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidCredit, n)
	}
	if _, err := s.repo.GetOrCreateUser(ctx, tx, userID); err != nil {
		return err
	}
	return tx.WithContext(ctx).Model(&domain.UserEntitlement{}).
		Where("user_id = ?", userID).
		Update("resolves_remaining", gorm.Expr("resolves_remaining + ?", n)).Error
}

// ActivateGroupSubscription implements domain.Ledger. A timed plan extends
// from the later of now and the current expiry; a lifetime plan clears it.
func (s *service) ActivateGroupSubscription(ctx context.Context, tx *gorm.DB, groupID int64, plan pricing.Plan, sourceInvoiceID string) error {
	if plan.Kind != pricing.PlanKindGroup {
		return fmt.Errorf("%w: %s is not a group plan", domain.ErrPlanKind, plan.ID)
	}
	now := s.clock.Now(ctx)

	sub, err := s.repo.FindGroupSubscription(ctx, tx, groupID)
	if err != nil {
		return err
	}
	if sub == nil {
		sub = &domain.GroupSubscription{GroupID: groupID}
	}

	sub.PlanTier = plan.ID
	sub.SourceInvoiceID = sourceInvoiceID
	if plan.Lifetime() {
		sub.ActiveUntil = nil
	} else {
		base := now
		if sub.ActiveUntil != nil && sub.ActiveUntil.After(now) {
			base = *sub.ActiveUntil
		}
		until := base.AddDate(0, 0, *plan.Days)
		sub.ActiveUntil = &until
	}

	return tx.WithContext(ctx).Save(sub).Error
}

func (s *service) ActivateRagAddon(ctx context.Context, tx *gorm.DB, groupID int64, plan pricing.Plan, sourceInvoiceID string) error {
	if plan.Kind != pricing.PlanKindAddon {
		return fmt.Errorf("%w: %s is not an add-on plan", domain.ErrPlanKind, plan.ID)
	}
	now := s.clock.Now(ctx)

	sub, err := s.repo.FindGroupSubscription(ctx, tx, groupID)
	if err != nil {
		return err
	}
	if sub == nil {
		return domain.ErrGroupNotFound
	}

	if plan.Days == nil {
		return fmt.Errorf("%w: add-on %s has no duration", domain.ErrPlanKind, plan.ID)
	}
	base := now
	if sub.RagActiveUntil != nil && sub.RagActiveUntil.After(now) {
		base = *sub.RagActiveUntil
	}
	until := base.AddDate(0, 0, *plan.Days)
	sub.RagActiveUntil = &until

	return tx.WithContext(ctx).Save(sub).Error
}
