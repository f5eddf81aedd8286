package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/app"
	"github.com/dkeye/chatroom/internal/app/orch"
	"github.com/dkeye/chatroom/internal/core"
	"github.com/dkeye/chatroom/internal/domain"
)

type adminHandler struct {
	orch     *orch.Orchestrator
	policies *app.PolicyService
}

type banRequest struct {
	Type       domain.BanType `json:"type" binding:"required"`
	Value      string         `json:"value" binding:"required"`
	Reason     string         `json:"reason"`
	ExpiresAt  *time.Time     `json:"expiresAt"`
	DurationMs int64          `json:"durationMs"`
}

type topicsRequest struct {
	Topics []string `json:"topics"`
}

type kickRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

func (h *adminHandler) getPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.policies.Get())
}

func (h *adminHandler) putPolicy(c *gin.Context) {
	var p domain.ModerationPolicy
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.policies.Replace(c.Request.Context(), p); err != nil {
		if errors.Is(err, app.ErrPolicyInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.policies.Get())
}

func (h *adminHandler) listBans(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Admission.Bans.List())
}

// addBan accepts either an absolute expiresAt or a relative durationMs.
func (h *adminHandler) addBan(c *gin.Context) {
	var req banRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ban := domain.BanEntry{Type: req.Type, Value: req.Value, Reason: req.Reason, ExpiresAt: req.ExpiresAt}
	if req.DurationMs > 0 {
		exp := h.orch.Clock.Now().Add(time.Duration(req.DurationMs) * time.Millisecond).UTC()
		ban.ExpiresAt = &exp
	}

	added, err := h.orch.Admission.Bans.Add(c.Request.Context(), ban)
	switch {
	case errors.Is(err, app.ErrBanInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, added)
	}
}

func (h *adminHandler) removeBan(c *gin.Context) {
	err := h.orch.Admission.Bans.Remove(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, app.ErrBanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h *adminHandler) getTopics(c *gin.Context) {
	c.JSON(http.StatusOK, topicsRequest{Topics: h.orch.Topics.List()})
}

func (h *adminHandler) putTopics(c *gin.Context) {
	var req topicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.orch.Topics.Replace(c.Request.Context(), req.Topics); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, topicsRequest{Topics: h.orch.Topics.List()})
}

func (h *adminHandler) online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connections": h.orch.Registry.Count(),
		"rooms":       h.orch.Online(),
	})
}

func (h *adminHandler) kick(c *gin.Context) {
	var req kickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slug, err := domain.NormalizeSlug(c.Param("room"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err := h.orch.Kick(slug, core.SessionID(req.SessionID)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	log.Info().Str("module", "adapters.http").Str("room", string(slug)).Str("sid", req.SessionID).Msg("admin kick")
	c.Status(http.StatusNoContent)
}
