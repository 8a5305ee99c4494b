package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"zentari/internal/domain"
	"zentari/internal/service"
	"zentari/internal/telegram"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

// Auth exchanges Telegram Mini App init data for a session token. The caller
// learns whether an account exists; new players follow up with /register.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "init_data is required")
		return
	}
	if len(req.InitData) > 4096 {
		badRequest(c, "init_data too long")
		return
	}

	var (
		user   *telegram.WebAppUser
		values url.Values
		err    error
	)
	if h.DevMode {
		// DEV MODE: skip hash validation
		user, values, err = telegram.ParseUnverified(req.InitData)
	} else {
		user, values, err = telegram.AuthenticateValues(req.InitData, h.BotToken, time.Now())
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or stale telegram data", "code": "unauthorized"})
		return
	}
	h.issue(c, user, values.Get("start_param"))
}

func (h *Handler) issue(c *gin.Context, user *telegram.WebAppUser, startParam string) {
	userID := user.AccountID()
	token, err := service.GenerateJWT(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	resp := gin.H{"token": token, "user_id": userID}
	status, err := h.Engine.GetStatus(ctx, userID)
	switch {
	case err == nil:
		resp["registered"] = true
		resp["status"] = status
		h.Audit.LogLogin(ctx, userID, c.ClientIP(), c.Request.UserAgent())
	case errors.Is(err, domain.ErrNotFound):
		resp["registered"] = false
		resp["suggested_username"] = user.Username
		if startParam != "" {
			resp["inviter"] = startParam
		}
	default:
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Inviter  string `json:"inviter"`
}

// Register creates the account for the authenticated Telegram user.
func (h *Handler) Register(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username is required")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Engine.Register(ctx, service.RegisterInput{
		UserID:   userID,
		Username: req.Username,
		Inviter:  req.Inviter,
	}); err != nil {
		respondError(c, err)
		return
	}
	status, err := h.Engine.GetStatus(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, status)
}
