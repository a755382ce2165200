package server

import (
	auditdomain "github.com/accordhq/accord/internal/audit/domain"
	"github.com/accordhq/accord/internal/config"
	entitlementdomain "github.com/accordhq/accord/internal/entitlement/domain"
	invoicedomain "github.com/accordhq/accord/internal/invoice/domain"
	"github.com/accordhq/accord/internal/moderation/detector"
	moderationdomain "github.com/accordhq/accord/internal/moderation/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Param struct {
	fx.In

	Log          *zap.Logger
	Cfg          config.Config
	DB           *gorm.DB
	Redis        *redis.Client
	Invoices     invoicedomain.Service
	Entitlements entitlementdomain.Service
	Moderation   moderationdomain.Service
	Audit        auditdomain.Service
	Detector     *detector.Detector
}

// Server is the inbound surface for the chat transport collaborator. It
// speaks outcomes, never user-facing copy.
type Server struct {
	log          *zap.Logger
	cfg          config.Config
	db           *gorm.DB
	redis        *redis.Client
	invoices     invoicedomain.Service
	entitlements entitlementdomain.Service
	moderation   moderationdomain.Service
	audit        auditdomain.Service
	detector     *detector.Detector
	engine       *gin.Engine
}

func New(p Param) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		log:          p.Log.Named("server"),
		cfg:          p.Cfg,
		db:           p.DB,
		redis:        p.Redis,
		invoices:     p.Invoices,
		entitlements: p.Entitlements,
		moderation:   p.Moderation,
		audit:        p.Audit,
		detector:     p.Detector,
		engine:       engine,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	v1.Use(s.RateLimitMiddleware())

	v1.GET("/plans", s.ListPlans)
	v1.POST("/invoices", s.CreateInvoice)
	v1.POST("/payments/precheckout", s.ValidatePrecheckout)
	v1.POST("/payments/settle", s.SettlePayment)

	v1.POST("/resolves/consume", s.ConsumeResolve)
	v1.GET("/users/:id/entitlement", s.GetUserEntitlement)
	v1.PATCH("/users/:id/defaults", s.UpdateUserDefaults)
	v1.GET("/groups/:id/entitlement", s.GetGroupEntitlement)

	v1.POST("/moderation/messages", s.ScanMessage)
	v1.POST("/moderation/events", s.RecordModerationEvent)
	v1.GET("/groups/:id/settings", s.GetGroupSettings)
	v1.PATCH("/groups/:id/settings", s.UpdateGroupSettings)
	v1.GET("/groups/:id/moderation/recent", s.RecentModerationActions)

	v1.GET("/audit/export", s.ExportAuditLogs)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }
