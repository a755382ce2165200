package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	auditdomain "github.com/accordhq/accord/internal/audit/domain"
	"github.com/accordhq/accord/internal/config"
	invoicedomain "github.com/accordhq/accord/internal/invoice/domain"
	moderationdomain "github.com/accordhq/accord/internal/moderation/domain"
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

func newTestScheduler(t *testing.T) (*Scheduler, *gorm.DB, *fakeClock) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&invoicedomain.Invoice{},
		&moderationdomain.ViolationCounter{},
		&auditdomain.AuditLog{},
	))

	clk := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	s := New(Param{
		DB:  gdb,
		Log: zap.NewNop(),
		Cfg: config.Config{
			InvoiceTTL:         time.Hour,
			AuditRetentionDays: 90,
			CooldownWindow:     24 * time.Hour,
		},
		Clock: clk,
	})
	return s, gdb, clk
}

func TestExpireStaleInvoicesJob(t *testing.T) {
	s, gdb, clk := newTestScheduler(t)
	ctx := context.Background()

	stale := &invoicedomain.Invoice{
		ID: "inv_stale", OwnerID: 42, PlanID: "p1", Amount: 5, Currency: "XTR",
		Status: invoicedomain.InvoiceStatusPending, CreatedAt: clk.now.Add(-2 * time.Hour),
	}
	fresh := &invoicedomain.Invoice{
		ID: "inv_fresh", OwnerID: 42, PlanID: "p1", Amount: 5, Currency: "XTR",
		Status: invoicedomain.InvoiceStatusPending, CreatedAt: clk.now.Add(-10 * time.Minute),
	}
	paid := &invoicedomain.Invoice{
		ID: "inv_paid", OwnerID: 42, PlanID: "p1", Amount: 5, Currency: "XTR",
		Status: invoicedomain.InvoiceStatusPaid, CreatedAt: clk.now.Add(-2 * time.Hour),
	}
	require.NoError(t, gdb.Create(stale).Error)
	require.NoError(t, gdb.Create(fresh).Error)
	require.NoError(t, gdb.Create(paid).Error)

	require.NoError(t, s.ExpireStaleInvoicesJob(ctx))

	status := func(id string) invoicedomain.InvoiceStatus {
		var inv invoicedomain.Invoice
		require.NoError(t, gdb.First(&inv, "id = ?", id).Error)
		return inv.Status
	}
	assert.Equal(t, invoicedomain.InvoiceStatusExpired, status("inv_stale"))
	assert.Equal(t, invoicedomain.InvoiceStatusPending, status("inv_fresh"))
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, status("inv_paid"))
}

func TestPruneAuditLogsJob(t *testing.T) {
	s, gdb, clk := newTestScheduler(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	old := &auditdomain.AuditLog{
		ID: node.Generate(), Kind: auditdomain.KindModeration, Action: "warn",
		CreatedAt: clk.now.AddDate(0, 0, -120),
	}
	recent := &auditdomain.AuditLog{
		ID: node.Generate(), Kind: auditdomain.KindModeration, Action: "warn",
		CreatedAt: clk.now.AddDate(0, 0, -5),
	}
	require.NoError(t, gdb.Create(old).Error)
	require.NoError(t, gdb.Create(recent).Error)

	require.NoError(t, s.PruneAuditLogsJob(context.Background()))

	var count int64
	require.NoError(t, gdb.Model(&auditdomain.AuditLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPruneViolationCountersJob(t *testing.T) {
	s, gdb, clk := newTestScheduler(t)

	require.NoError(t, gdb.Create(&moderationdomain.ViolationCounter{
		GroupID: -100, UserID: 7, Count: 2, LastViolationAt: clk.now.Add(-48 * time.Hour),
	}).Error)
	require.NoError(t, gdb.Create(&moderationdomain.ViolationCounter{
		GroupID: -100, UserID: 8, Count: 1, LastViolationAt: clk.now.Add(-time.Hour),
	}).Error)

	require.NoError(t, s.PruneViolationCountersJob(context.Background()))

	var counters []moderationdomain.ViolationCounter
	require.NoError(t, gdb.Find(&counters).Error)
	require.Len(t, counters, 1)
	assert.Equal(t, int64(8), counters[0].UserID)
}
