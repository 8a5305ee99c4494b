package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Referral returns the caller's referral lists, tiers and invite link.
func (h *Handler) Referral(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	ctx := c.Request.Context()
	details, err := h.Engine.ReferralDetails(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	a, err := h.Engine.Store().Get(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"link":     fmt.Sprintf("https://t.me/%s?startapp=%s", h.BotUsername, a.Username),
		"referral": details,
	})
}

func (h *Handler) ClaimReferral(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	res, err := h.Engine.ClaimReferralReward(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
