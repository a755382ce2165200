package service

import (
	"context"
	"sync"
	"testing"
	"time"

	auditdomain "github.com/accordhq/accord/internal/audit/domain"
	auditrepo "github.com/accordhq/accord/internal/audit/repository"
	"github.com/accordhq/accord/internal/config"
	entitlementdomain "github.com/accordhq/accord/internal/entitlement/domain"
	entitlementrepo "github.com/accordhq/accord/internal/entitlement/repository"
	entitlementservice "github.com/accordhq/accord/internal/entitlement/service"
	"github.com/accordhq/accord/internal/moderation/domain"
	"github.com/accordhq/accord/internal/moderation/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now(context.Context) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc domain.Service
	clk *fakeClock
	db  *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&domain.GroupSettings{},
		&domain.ModerationRecord{},
		&domain.ViolationCounter{},
		&entitlementdomain.UserEntitlement{},
		&entitlementdomain.GroupSubscription{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		WarnThreshold:  2,
		MuteThreshold:  3,
		MuteDuration:   10 * time.Minute,
		CooldownWindow: 24 * time.Hour,
		FreeTierWindow: 24 * time.Hour,
		FreeTierGoal:   "stabilize",
	}
	clk := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	log := zap.NewNop()

	entitlements := entitlementservice.NewService(entitlementservice.ServiceParam{
		DB:    gdb,
		Log:   log,
		Clock: clk,
		Cfg:   cfg,
		Repo:  entitlementrepo.Provide(gdb),
	})

	svc := NewService(ServiceParam{
		DB:           gdb,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Cfg:          cfg,
		Repo:         repository.Provide(gdb),
		Entitlements: entitlements,
		Audit:        auditrepo.Provide(gdb),
	})

	return &fixture{svc: svc, clk: clk, db: gdb}
}

func (f *fixture) entitleGroup(t *testing.T, groupID int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&entitlementdomain.GroupSubscription{
		GroupID:  groupID,
		PlanTier: "group_charter",
	}).Error)
}

func event(groupID, userID int64, offenseID string) domain.ModerationEvent {
	return domain.ModerationEvent{
		GroupID:   groupID,
		UserID:    userID,
		OffenseID: offenseID,
		Rule:      "insult",
	}
}

func TestLadderEscalation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.entitleGroup(t, -100)

	want := []string{domain.ActionNotice, domain.ActionWarn, domain.ActionMute}
	for i, action := range want {
		dec, err := f.svc.Record(ctx, event(-100, 7, offenseID(i)))
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeRecorded, dec.Outcome)
		assert.Equal(t, action, dec.Action)
		assert.Equal(t, i+1, dec.Violations)
	}

	var records []domain.ModerationRecord
	require.NoError(t, f.db.Order("id").Find(&records).Error)
	require.Len(t, records, 3)
	for i, action := range want {
		assert.Equal(t, action, records[i].Action)
	}
}

func TestMuteCarriesDurationAndRestriction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.entitleGroup(t, -100)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Record(ctx, event(-100, 7, offenseID(i)))
		require.NoError(t, err)
	}
	dec, err := f.svc.Record(ctx, event(-100, 7, "off_mute"))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMute, dec.Action)
	assert.True(t, dec.ApplyRestriction)
	assert.Equal(t, 10*time.Minute, dec.MuteDuration)
	assert.False(t, dec.NotifyAdmins)
}

func TestUnentitledGroupIsSuppressed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dec, err := f.svc.Record(ctx, event(-200, 7, offenseID(i)))
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeSuppressed, dec.Outcome)
		assert.False(t, dec.ApplyRestriction)
	}

	var records []domain.ModerationRecord
	require.NoError(t, f.db.Find(&records).Error)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, domain.ActionSuppressed, r.Action)
	}

	// Suppressed offenses never advance the ladder.
	var counters []domain.ViolationCounter
	require.NoError(t, f.db.Find(&counters).Error)
	assert.Empty(t, counters)
}

func TestAdminIsNeverEvaluated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.entitleGroup(t, -100)

	ev := event(-100, 7, "off_admin")
	ev.IsAdmin = true
	dec, err := f.svc.Record(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAdminExempt, dec.Outcome)

	var count int64
	require.NoError(t, f.db.Model(&domain.ModerationRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDuplicateOffenseIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.entitleGroup(t, -100)

	dec, err := f.svc.Record(ctx, event(-100, 7, "off_same"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRecorded, dec.Outcome)

	dec, err = f.svc.Record(ctx, event(-100, 7, "off_same"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, dec.Outcome)

	var counter domain.ViolationCounter
	require.NoError(t, f.db.First(&counter, "group_id = ? AND user_id = ?", -100, 7).Error)
	assert.Equal(t, 1, counter.Count)

	var count int64
	require.NoError(t, f.db.Model(&domain.ModerationRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMuteIsReentrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.entitleGroup(t, -100)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Record(ctx, event(-100, 7, offenseID(i)))
		require.NoError(t, err)
	}

	dec, err := f.svc.Record(ctx, event(-100, 7, "off_again"))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMute, dec.Action)
	assert.Equal(t, 4, dec.Violations)
	assert.False(t, dec.ApplyRestriction, "an existing mute is never extended")
}

func TestCooldownResetsLadder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.entitleGroup(t, -100)

	dec, err := f.svc.Record(ctx, event(-100, 7, "off_before"))
	require.NoError(t, err)
	assert.Equal(t, 1, dec.Violations)

	f.clk.advance(25 * time.Hour)
	dec, err = f.svc.Record(ctx, event(-100, 7, "off_after"))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNotice, dec.Action)
	assert.Equal(t, 1, dec.Violations)
}

func TestRestrictionFailureIsLoggedAndEscalated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.entitleGroup(t, -100)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Record(ctx, event(-100, 7, offenseID(i)))
		require.NoError(t, err)
	}

	ev := event(-100, 7, "off_nopermission")
	ev.RestrictUnavailable = true
	dec, err := f.svc.Record(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMuteFailed, dec.Action)
	assert.False(t, dec.ApplyRestriction)
	assert.True(t, dec.NotifyAdmins)

	var record domain.ModerationRecord
	require.NoError(t, f.db.First(&record, "offense_id = ?", "off_nopermission").Error)
	assert.Equal(t, domain.ActionMuteFailed, record.Action)
}

func TestDisabledGroupRecordsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.entitleGroup(t, -100)

	enabled := false
	_, err := f.svc.UpdateSettings(ctx, -100, domain.SettingsUpdate{Enabled: &enabled})
	require.NoError(t, err)

	dec, err := f.svc.Record(ctx, event(-100, 7, "off_disabled"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDisabled, dec.Outcome)

	var count int64
	require.NoError(t, f.db.Model(&domain.ModerationRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSettingsDefaults(t *testing.T) {
	f := newFixture(t)

	settings, err := f.svc.GetOrCreateSettings(context.Background(), -300)
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	assert.Equal(t, "en", settings.Language)
	assert.Equal(t, "clean", settings.LanguageMode)
	assert.Equal(t, 2, settings.WarnThreshold)
	assert.Equal(t, 3, settings.MuteThreshold)
}

func TestUpdateSettingsValidatesThresholds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	warn, mute := 5, 3
	_, err := f.svc.UpdateSettings(ctx, -300, domain.SettingsUpdate{
		WarnThreshold: &warn,
		MuteThreshold: &mute,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidThresholds)

	warn, mute = 3, 5
	settings, err := f.svc.UpdateSettings(ctx, -300, domain.SettingsUpdate{
		WarnThreshold: &warn,
		MuteThreshold: &mute,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, settings.WarnThreshold)
	assert.Equal(t, 5, settings.MuteThreshold)
}

func TestModerationWritesAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.entitleGroup(t, -100)

	_, err := f.svc.Record(ctx, event(-100, 7, "off_audit"))
	require.NoError(t, err)

	var entries []auditdomain.AuditLog
	require.NoError(t, f.db.Where("kind = ?", auditdomain.KindModeration).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionNotice, entries[0].Action)
}

func offenseID(i int) string {
	return "off_" + string(rune('a'+i))
}
