package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"zentari/internal/bot"
	"zentari/internal/clock"
	"zentari/internal/config"
	"zentari/internal/db"
	"zentari/internal/entitlement"
	httpServer "zentari/internal/http"
	"zentari/internal/http/handlers"
	"zentari/internal/http/middleware"
	"zentari/internal/logger"
	"zentari/internal/migrations"
	"zentari/internal/repository"
	"zentari/internal/service"
	"zentari/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

// backend is the storage selected by STORE_DRIVER.
type backend struct {
	store repository.Store
	tasks repository.TaskStore
	audit service.AuditSink
	pool  *pgxpool.Pool
}

func main() {
	if err := run(); err != nil {
		logger.Fatal("fatal", "error", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	rules, err := entitlement.Load(cfg.RulesFile)
	if err != nil {
		return err
	}
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	if be.pool != nil {
		defer be.pool.Close()
	}

	if err := middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		logger.Warn("redis unavailable, rate limiting in process", "error", err)
	}
	defer middleware.CloseRedis()

	clk := clock.Real{}
	audit := service.NewAuditService(be.audit)
	hub := ws.NewHub(nil)
	engine := service.NewEngine(be.store, rules, clk, service.WithAudit(audit), service.WithNotifier(hub))
	hub.SetSource(engine)
	tasks := service.NewTaskService(be.tasks, engine)

	checks := map[string]handlers.PingFunc{"store": be.store.Ping}
	if ping := middleware.RedisPinger(); ping != nil {
		checks["redis"] = ping
	}

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpServer.NewRouter(ctx, httpServer.Deps{
		Handler: &handlers.Handler{
			Engine:      engine,
			Tasks:       tasks,
			Audit:       audit,
			BotToken:    cfg.BotToken,
			BotUsername: cfg.BotUsername,
			DevMode:     cfg.DevMode,
		},
		Health: handlers.NewHealthHandler(version, "store", checks),
		Hub:    hub,
		Config: cfg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started", "port", cfg.AppPort, "store", cfg.StoreDriver, "rules", rules.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return hub.Run(gctx) })

	if cfg.TelegramBotEnabled {
		gameBot, err := bot.NewGameBot(cfg.BotToken, bot.NewCommands(engine, cfg.BotUsername), cfg.WebAppURL)
		if err != nil {
			logger.Error("failed to start game bot", "error", err)
		} else {
			g.Go(func() error { return gameBot.Run(gctx) })
		}
	}

	err = g.Wait()
	logger.Info("server exited")
	return err
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using in-memory store, state is lost on restart")
		return &backend{
			store: repository.NewMemoryStore(),
			tasks: repository.NewMemoryTaskStore(time.Now),
			audit: &repository.MemoryAuditLog{},
		}, nil
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := migrations.Apply(ctx, pool, func(name string) {
		logger.Debug("migration applied", "file", name)
	}); err != nil {
		pool.Close()
		return nil, err
	}
	return &backend{
		store: repository.NewAccountRepository(pool),
		tasks: repository.NewTaskRepository(pool),
		audit: repository.NewAuditRepository(pool),
		pool:  pool,
	}, nil
}
