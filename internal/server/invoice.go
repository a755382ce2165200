package server

import (
	invoicedomain "github.com/accordhq/accord/internal/invoice/domain"
	"github.com/accordhq/accord/internal/pricing"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListPlans handles GET /v1/plans
func (s *Server) ListPlans(c *gin.Context) {
	respondData(c, pricing.All())
}

type createInvoiceRequest struct {
	OwnerID int64  `json:"owner_id" binding:"required"`
	PlanID  string `json:"plan_id" binding:"required"`
	GroupID *int64 `json:"group_id,omitempty"`
}

// CreateInvoice handles POST /v1/invoices
func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	created, err := s.invoices.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		OwnerID: req.OwnerID,
		PlanID:  req.PlanID,
		GroupID: req.GroupID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"invoice": created.Invoice, "token": created.Token})
}

type precheckoutRequest struct {
	Token     string `json:"token" binding:"required"`
	InvoiceID string `json:"invoice_id" binding:"required"`
	OwnerID   int64  `json:"owner_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	Currency  string `json:"currency"`
}

// ValidatePrecheckout handles POST /v1/payments/precheckout
func (s *Server) ValidatePrecheckout(c *gin.Context) {
	var req precheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	err := s.invoices.ValidatePrecheckout(c.Request.Context(), invoicedomain.PrecheckoutRequest{
		Token:     req.Token,
		InvoiceID: req.InvoiceID,
		OwnerID:   req.OwnerID,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"ok": true})
}

type settleRequest struct {
	InvoiceID        string `json:"invoice_id" binding:"required"`
	ExternalChargeID string `json:"external_charge_id" binding:"required"`
}

// SettlePayment handles POST /v1/payments/settle
func (s *Server) SettlePayment(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.invoices.MarkPaid(c.Request.Context(), req.InvoiceID, req.ExternalChargeID)
	if err != nil {
		s.log.Warn("settlement rejected",
			zap.String("invoice_id", req.InvoiceID), zap.Error(err))
		AbortWithError(c, err)
		return
	}
	respondData(c, result)
}
