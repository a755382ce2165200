package server

import (
	"errors"
	"strconv"

	entitlementdomain "github.com/accordhq/accord/internal/entitlement/domain"
	"github.com/gin-gonic/gin"
)

type consumeResolveRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Tier   string `json:"tier" binding:"required"`
	Retry  bool   `json:"retry"`
}

// ConsumeResolve handles POST /v1/resolves/consume
func (s *Server) ConsumeResolve(c *gin.Context) {
	var req consumeResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	consumption, err := s.entitlements.ConsumeResolve(c.Request.Context(), entitlementdomain.ConsumeRequest{
		UserID: req.UserID,
		Tier:   req.Tier,
		Retry:  req.Retry,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, consumption)
}

// GetUserEntitlement handles GET /v1/users/:id/entitlement
func (s *Server) GetUserEntitlement(c *gin.Context) {
	userID, err := pathID(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	user, err := s.entitlements.GetOrCreateUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, user)
}

type updateDefaultsRequest struct {
	Goal string `json:"goal"`
	Tone string `json:"tone"`
}

// UpdateUserDefaults handles PATCH /v1/users/:id/defaults
func (s *Server) UpdateUserDefaults(c *gin.Context) {
	userID, err := pathID(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req updateDefaultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.entitlements.UpdateUserDefaults(c.Request.Context(), userID, req.Goal, req.Tone); err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"ok": true})
}

// GetGroupEntitlement handles GET /v1/groups/:id/entitlement
func (s *Server) GetGroupEntitlement(c *gin.Context) {
	groupID, err := pathID(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	entitled := s.entitlements.IsGroupEntitled(ctx, groupID)

	resp := gin.H{
		"entitled":     entitled,
		"rag_entitled": s.entitlements.IsRagEntitled(ctx, groupID),
	}
	sub, err := s.entitlements.SubscriptionInfo(ctx, groupID)
	if err != nil && !errors.Is(err, entitlementdomain.ErrGroupNotFound) {
		AbortWithError(c, err)
		return
	}
	if sub != nil {
		resp["subscription"] = sub
	}
	respondData(c, resp)
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
