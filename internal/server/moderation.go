package server

import (
	"github.com/accordhq/accord/internal/moderation/detector"
	moderationdomain "github.com/accordhq/accord/internal/moderation/domain"
	"github.com/gin-gonic/gin"
)

type scanMessageRequest struct {
	GroupID             int64  `json:"group_id" binding:"required"`
	UserID              int64  `json:"user_id" binding:"required"`
	MessageID           string `json:"message_id" binding:"required"`
	Text                string `json:"text"`
	IsAdmin             bool   `json:"is_admin"`
	RestrictUnavailable bool   `json:"restrict_unavailable"`
}

// ScanMessage handles POST /v1/moderation/messages. It runs detection and,
// on a finding, the ladder transition in one round trip; the message id is
// the offense id, so redelivery cannot double-count.
func (s *Server) ScanMessage(c *gin.Context) {
	var req scanMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	ctx := c.Request.Context()

	// Admins are excluded from detection entirely: no rule runs and the
	// flood window never counts their messages.
	if req.IsAdmin {
		respondData(c, gin.H{
			"clean":    true,
			"decision": moderationdomain.Decision{Outcome: moderationdomain.OutcomeAdminExempt},
		})
		return
	}

	settings, err := s.moderation.GetOrCreateSettings(ctx, req.GroupID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	finding := s.detector.Check(ctx, settings, detector.Message{
		GroupID: req.GroupID,
		UserID:  req.UserID,
		Text:    req.Text,
	})
	if finding == nil {
		respondData(c, gin.H{"clean": true})
		return
	}

	decision, err := s.moderation.Record(ctx, moderationdomain.ModerationEvent{
		GroupID:             req.GroupID,
		UserID:              req.UserID,
		OffenseID:           req.MessageID,
		Rule:                finding.Rule,
		IsAdmin:             req.IsAdmin,
		RestrictUnavailable: req.RestrictUnavailable,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"clean": false, "rule": finding.Rule, "decision": decision})
}

// RecordModerationEvent handles POST /v1/moderation/events for offenses the
// collaborator detected itself.
func (s *Server) RecordModerationEvent(c *gin.Context) {
	var ev moderationdomain.ModerationEvent
	if err := c.ShouldBindJSON(&ev); err != nil || ev.GroupID == 0 || ev.OffenseID == "" || ev.Rule == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	decision, err := s.moderation.Record(c.Request.Context(), ev)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, decision)
}

// GetGroupSettings handles GET /v1/groups/:id/settings
func (s *Server) GetGroupSettings(c *gin.Context) {
	groupID, err := pathID(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	settings, err := s.moderation.GetOrCreateSettings(c.Request.Context(), groupID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, settings)
}

// UpdateGroupSettings handles PATCH /v1/groups/:id/settings
func (s *Server) UpdateGroupSettings(c *gin.Context) {
	groupID, err := pathID(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var upd moderationdomain.SettingsUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	settings, err := s.moderation.UpdateSettings(c.Request.Context(), groupID, upd)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, settings)
}

// RecentModerationActions handles GET /v1/groups/:id/moderation/recent
func (s *Server) RecentModerationActions(c *gin.Context) {
	groupID, err := pathID(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = atoiQuery(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	entries, err := s.audit.RecentModerationActions(c.Request.Context(), groupID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, entries)
}
