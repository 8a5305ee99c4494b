package handlers

import (
	"net/http"

	"zentari/internal/domain"

	"github.com/gin-gonic/gin"
)

// Status returns the account recomputed at the current time.
func (h *Handler) Status(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	status, err := h.Engine.GetStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type TapRequest struct {
	Count int `json:"count"`
}

func (h *Handler) Tap(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req TapRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid tap request")
			return
		}
	}
	if req.Count == 0 {
		req.Count = 1
	}

	res, err := h.Engine.Tap(c.Request.Context(), userID, req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type UpgradeRequest struct {
	Track    domain.Track `json:"track" binding:"required"`
	UseStars bool         `json:"use_stars"`
}

func (h *Handler) Upgrade(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "track is required")
		return
	}

	res, err := h.Engine.Upgrade(c.Request.Context(), userID, req.Track, req.UseStars)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpgradeCosts lists the next step of every track for the caller.
func (h *Handler) UpgradeCosts(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	status, err := h.Engine.GetStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"levels": status.Levels, "upgrades": status.Upgrades})
}

type ActivateBotRequest struct {
	Tier             string `json:"tier"`
	PaymentValidated bool   `json:"payment_validated"`
}

func (h *Handler) ActivateBot(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req ActivateBotRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid activation request")
			return
		}
	}
	if req.Tier == "" {
		req.Tier = "free"
	}

	res, err := h.Engine.ActivateBot(c.Request.Context(), userID, req.Tier, req.PaymentValidated)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ClaimBot(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	res, err := h.Engine.ClaimBotEarnings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) BotStatus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	v, err := h.Engine.BotStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) CheckIn(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	res, err := h.Engine.CheckIn(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CheckInStatus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	v, err := h.Engine.CheckInStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Rules exposes the active rules table so clients can render costs.
func (h *Handler) Rules(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.Rules())
}
