package handlers

import (
	"net/http"
	"strconv"

	"zentari/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) leaderboard(c *gin.Context, kind string) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	top, err := h.Engine.Leaderboard(c.Request.Context(), kind, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": top, "kind": kind})
}

// PowerLeaderboard returns the top accounts by power.
func (h *Handler) PowerLeaderboard(c *gin.Context) {
	h.leaderboard(c, service.LeaderboardPower)
}

// ReferralLeaderboard returns the top accounts by direct referrals.
func (h *Handler) ReferralLeaderboard(c *gin.Context) {
	h.leaderboard(c, service.LeaderboardReferrals)
}

// MyRank returns the caller's position on the power leaderboard.
func (h *Handler) MyRank(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	rank, err := h.Engine.PowerRank(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rank": rank})
}

func (h *Handler) History(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.Engine.History(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
