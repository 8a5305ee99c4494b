package handlers

import (
	"zentari/internal/http/middleware"
	"zentari/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler serves the game API on top of the engine.
type Handler struct {
	Engine      *service.Engine
	Tasks       *service.TaskService
	Audit       *service.AuditService
	BotToken    string
	BotUsername string
	DevMode     bool
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.UserIDKey)
	return id, id != ""
}
