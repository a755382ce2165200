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
	"github.com/accordhq/accord/internal/moderation/domain"
	"github.com/accordhq/accord/internal/observability"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Cfg          config.Config
	Repo         domain.Repository
	Entitlements entitlementdomain.Service
	Audit        auditdomain.Repository
	Metrics      *observability.Metrics `optional:"true"`
}

type service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	cfg          config.Config
	repo         domain.Repository
	entitlements entitlementdomain.Service
	audit        auditdomain.Repository
	metrics      *observability.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &service{
		db:           p.DB,
		log:          p.Log.Named("moderation.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		cfg:          p.Cfg,
		repo:         p.Repo,
		entitlements: p.Entitlements,
		audit:        p.Audit,
		metrics:      p.Metrics,
	}
}

// errDuplicateOffense aborts the transition transaction when the offense id
// was already recorded; swallowed above and surfaced as OutcomeDuplicate.
var errDuplicateOffense = errors.New("duplicate_offense_rollback")

func (s *service) Record(ctx context.Context, ev domain.ModerationEvent) (domain.Decision, error) {
	if ev.IsAdmin {
		return domain.Decision{Outcome: domain.OutcomeAdminExempt}, nil
	}

	settings, err := s.GetOrCreateSettings(ctx, ev.GroupID)
	if err != nil {
		return domain.Decision{}, err
	}
	if !settings.Enabled {
		return domain.Decision{Outcome: domain.OutcomeDisabled}, nil
	}

	if !s.entitlements.IsGroupEntitled(ctx, ev.GroupID) {
		return s.recordSuppressed(ctx, ev)
	}
	return s.recordTransition(ctx, settings, ev)
}

// recordSuppressed logs the offense without touching the counter. The
// ladder never advances for an unentitled group.
func (s *service) recordSuppressed(ctx context.Context, ev domain.ModerationEvent) (domain.Decision, error) {
	dec := domain.Decision{Outcome: domain.OutcomeSuppressed, Action: domain.ActionSuppressed}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := &domain.ModerationRecord{
			ID:        s.genID.Generate(),
			GroupID:   ev.GroupID,
			UserID:    ev.UserID,
			OffenseID: ev.OffenseID,
			Rule:      ev.Rule,
			Action:    domain.ActionSuppressed,
			CreatedAt: s.clock.Now(ctx),
		}
		if err := s.repo.InsertRecord(ctx, tx, record); err != nil {
			if isDuplicateKey(err) {
				dec = domain.Decision{Outcome: domain.OutcomeDuplicate}
				return errDuplicateOffense
			}
			return err
		}
		return s.appendAudit(ctx, tx, ev, domain.ActionSuppressed, 0)
	})
	if errors.Is(err, errDuplicateOffense) {
		err = nil
	}
	if err != nil {
		return domain.Decision{}, err
	}

	if dec.Outcome == domain.OutcomeSuppressed {
		s.countAction(domain.ActionSuppressed)
		s.log.Info("offense suppressed for unentitled group",
			zap.Int64("group_id", ev.GroupID),
			zap.String("rule", ev.Rule))
	}
	return dec, nil
}

func (s *service) recordTransition(ctx context.Context, settings *domain.GroupSettings, ev domain.ModerationEvent) (domain.Decision, error) {
	var dec domain.Decision

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now(ctx)

		counter, err := s.repo.FindCounter(ctx, tx, ev.GroupID, ev.UserID)
		if err != nil {
			return err
		}
		if counter == nil {
			counter = &domain.ViolationCounter{GroupID: ev.GroupID, UserID: ev.UserID}
		}
		if counter.Count > 0 && now.Sub(counter.LastViolationAt) > s.cfg.CooldownWindow {
			counter.Count = 0
		}
		violations := counter.Count + 1

		action := actionForBand(violations, settings)
		// The restriction is applied exactly once per offense cycle, on the
		// transition into Muted. Re-triggering while muted only logs.
		applyRestriction := action == domain.ActionMute && violations == settings.MuteThreshold
		notify := false
		if applyRestriction && ev.RestrictUnavailable {
			action = domain.ActionMuteFailed
			applyRestriction = false
			notify = true
		}

		meta, err := json.Marshal(map[string]any{
			"violations":     violations,
			"warn_threshold": settings.WarnThreshold,
			"mute_threshold": settings.MuteThreshold,
		})
		if err != nil {
			return err
		}
		record := &domain.ModerationRecord{
			ID:        s.genID.Generate(),
			GroupID:   ev.GroupID,
			UserID:    ev.UserID,
			OffenseID: ev.OffenseID,
			Rule:      ev.Rule,
			Action:    action,
			Meta:      datatypes.JSON(meta),
			CreatedAt: now,
		}
		if err := s.repo.InsertRecord(ctx, tx, record); err != nil {
			if isDuplicateKey(err) {
				dec = domain.Decision{Outcome: domain.OutcomeDuplicate}
				return errDuplicateOffense
			}
			return err
		}

		counter.Count = violations
		counter.LastViolationAt = now
		if err := s.repo.SaveCounter(ctx, tx, counter); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, ev, action, violations); err != nil {
			return err
		}

		dec = domain.Decision{
			Outcome:          domain.OutcomeRecorded,
			Action:           action,
			Violations:       violations,
			ApplyRestriction: applyRestriction,
			NotifyAdmins:     notify,
		}
		if applyRestriction {
			dec.MuteDuration = s.cfg.MuteDuration
		}
		return nil
	})
	if errors.Is(err, errDuplicateOffense) {
		err = nil
	}
	if err != nil {
		return domain.Decision{}, err
	}

	if dec.Outcome == domain.OutcomeRecorded {
		s.countAction(dec.Action)
		s.log.Info("moderation transition",
			zap.Int64("group_id", ev.GroupID),
			zap.Int64("user_id", ev.UserID),
			zap.String("rule", ev.Rule),
			zap.String("action", dec.Action),
			zap.Int("violations", dec.Violations))
	}
	return dec, nil
}

// actionForBand is a pure function of the new counter value and the group's
// thresholds.
func actionForBand(violations int, settings *domain.GroupSettings) string {
	switch {
	case violations < settings.WarnThreshold:
		return domain.ActionNotice
	case violations < settings.MuteThreshold:
		return domain.ActionWarn
	default:
		return domain.ActionMute
	}
}

func (s *service) GetOrCreateSettings(ctx context.Context, groupID int64) (*domain.GroupSettings, error) {
	now := s.clock.Now(ctx)
	return s.repo.GetOrCreateSettings(ctx, nil, &domain.GroupSettings{
		GroupID:         groupID,
		Enabled:         true,
		Language:        "en",
		LanguageMode:    "clean",
		WarnThreshold:   s.cfg.WarnThreshold,
		MuteThreshold:   s.cfg.MuteThreshold,
		WelcomeEnabled:  true,
		RulesEnabled:    true,
		SecurityEnabled: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (s *service) UpdateSettings(ctx context.Context, groupID int64, upd domain.SettingsUpdate) (*domain.GroupSettings, error) {
	settings, err := s.GetOrCreateSettings(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if upd.Enabled != nil {
		settings.Enabled = *upd.Enabled
	}
	if upd.Language != nil {
		settings.Language = *upd.Language
	}
	if upd.LanguageMode != nil {
		settings.LanguageMode = *upd.LanguageMode
	}
	if upd.WarnThreshold != nil {
		settings.WarnThreshold = *upd.WarnThreshold
	}
	if upd.MuteThreshold != nil {
		settings.MuteThreshold = *upd.MuteThreshold
	}
	if upd.WelcomeEnabled != nil {
		settings.WelcomeEnabled = *upd.WelcomeEnabled
	}
	if upd.RulesEnabled != nil {
		settings.RulesEnabled = *upd.RulesEnabled
	}
	if upd.SecurityEnabled != nil {
		settings.SecurityEnabled = *upd.SecurityEnabled
	}

	if settings.WarnThreshold < 1 || settings.MuteThreshold <= settings.WarnThreshold {
		return nil, fmt.Errorf("%w: warn=%d mute=%d",
			domain.ErrInvalidThresholds, settings.WarnThreshold, settings.MuteThreshold)
	}

	settings.UpdatedAt = s.clock.Now(ctx)
	if err := s.repo.SaveSettings(ctx, nil, settings); err != nil {
		return nil, err
	}

	s.log.Info("group settings updated", zap.Int64("group_id", groupID))
	return settings, nil
}

func (s *service) appendAudit(ctx context.Context, tx *gorm.DB, ev domain.ModerationEvent, action string, violations int) error {
	detail, err := json.Marshal(map[string]any{
		"offense_id": ev.OffenseID,
		"rule":       ev.Rule,
		"violations": violations,
	})
	if err != nil {
		return err
	}
	return s.audit.Append(ctx, tx, &auditdomain.AuditLog{
		ID:        s.genID.Generate(),
		Kind:      auditdomain.KindModeration,
		GroupID:   &ev.GroupID,
		UserID:    &ev.UserID,
		Action:    action,
		Detail:    datatypes.JSON(detail),
		CreatedAt: s.clock.Now(ctx),
	})
}

func (s *service) countAction(action string) {
	if s.metrics != nil {
		s.metrics.ModerationActions.WithLabelValues(action).Inc()
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}
