package http

import (
	"context"

	"zentari/internal/config"
	"zentari/internal/http/handlers"
	"zentari/internal/http/middleware"
	"zentari/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the pieces the router wires into handlers.
type Deps struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Hub     *ws.Hub
	Config  *config.Config
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), middleware.Metrics(),
		middleware.CORS(d.Config.AllowedOrigins))
	RegisterRoutes(ctx, r, d)
	return r
}

func RegisterRoutes(ctx context.Context, r *gin.Engine, d Deps) {
	cfg := d.Config

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiRL := middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow)
	authRL := middleware.RedisRateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow)
	actionRL := middleware.UserRateLimit(cfg.ActionRateLimit, cfg.ActionRateWindow)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(apiRL)
	registerAPIRoutes(v1, d.Handler, authRL, actionRL)

	// Legacy /api routes, same handlers
	api := r.Group("/api")
	api.Use(apiRL)
	api.GET("/health", d.Health.Health)
	registerAPIRoutes(api, d.Handler, authRL, actionRL)

	// Live status feed
	r.GET("/ws", middleware.JWT(), ws.HandleWS(ctx, d.Hub, cfg.AllowedOrigins))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, authRL, actionRL gin.HandlerFunc) {
	// Auth
	api.POST("/auth", authRL, h.Auth)
	api.POST("/register", authRL, middleware.JWT(), h.Register)

	// Public
	api.GET("/rules", h.Rules)
	api.GET("/leaderboard/power", h.PowerLeaderboard)
	api.GET("/leaderboard/referrals", h.ReferralLeaderboard)

	me := api.Group("")
	me.Use(middleware.JWT())
	{
		me.GET("/status", h.Status)
		me.GET("/history", h.History)
		me.GET("/leaderboard/rank", h.MyRank)

		me.POST("/tap", actionRL, h.Tap)
		me.GET("/upgrade", h.UpgradeCosts)
		me.POST("/upgrade", actionRL, h.Upgrade)

		me.POST("/autobot/activate", actionRL, h.ActivateBot)
		me.POST("/autobot/claim", actionRL, h.ClaimBot)
		me.GET("/autobot/status", h.BotStatus)

		me.POST("/check-in", actionRL, h.CheckIn)
		me.GET("/check-in", h.CheckInStatus)

		me.GET("/referral", h.Referral)
		me.POST("/referral/claim", actionRL, h.ClaimReferral)

		me.GET("/tasks", h.ListTasks)
		me.POST("/tasks/:id/complete", actionRL, h.InitiateTask)
		me.GET("/tasks/:id/completion-status", h.TaskCompletionStatus)
	}
}
