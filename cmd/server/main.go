package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"faculty-appraisal/config"
	"faculty-appraisal/internal/api/handler"
	"faculty-appraisal/internal/api/middleware"
	"faculty-appraisal/internal/api/router"
	"faculty-appraisal/internal/repository"
	"faculty-appraisal/internal/service"
	"faculty-appraisal/internal/worker"
	"faculty-appraisal/pkg/database"
	"faculty-appraisal/pkg/jwt"
	applogger "faculty-appraisal/pkg/logger"
	"faculty-appraisal/pkg/metrics"
	"faculty-appraisal/pkg/ratelimit"
	"faculty-appraisal/pkg/redis"
)

func main() {
	// 1. config
	cfg, err := config.Load(os.Getenv("APPRAISAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)
	metrics.Init()

	// 3. database
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	// 4. shared state: redis when enabled and reachable, process memory otherwise
	var (
		rdb       *redis.Client
		blacklist jwt.Blacklist
		store     ratelimit.Store
		memStore  *ratelimit.MemoryStore
	)
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, revocation and rate limits stay in memory", zap.Error(err))
			rdb = nil
		}
	}
	if rdb != nil {
		blacklist, store = rdb, rdb
	} else {
		blacklist = jwt.NewMemoryBlacklist(nil)
		memStore = ratelimit.NewMemoryStore(nil)
		store = memStore
	}

	// 5. tokens
	tokens := jwt.NewManager(&cfg.Auth, blacklist)

	// 6. Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, tokens, logger)
	h := handler.NewHandler(svc)

	throttle := middleware.NewThrottle(cfg.RateLimit.GlobalRPS, cfg.RateLimit.GlobalBurst, cfg.RateLimit.ClientMaxAge)
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}

	// 7. router
	engine := router.Setup(router.Deps{
		Config:   cfg,
		Handler:  h,
		Tokens:   tokens,
		Limiter:  ratelimit.New(store),
		Throttle: throttle,
		Health: func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			if rdb != nil {
				return rdb.Ping(ctx)
			}
			return nil
		},
		Logger: logger,
	})

	// 8. housekeeping
	tasks := []worker.Task{
		{Name: "otp_cleanup", Run: func(ctx context.Context) error {
			_, err := svc.OTP.Cleanup(ctx)
			return err
		}},
		{Name: "throttle_sweep", Run: func(context.Context) error {
			throttle.Sweep()
			return nil
		}},
	}
	if memStore != nil {
		window := cfg.RateLimit.LongestWindow()
		tasks = append(tasks, worker.Task{Name: "rate_limit_sweep", Run: func(context.Context) error {
			memStore.Sweep(window)
			return nil
		}})
	}
	bgCtx, stopBackground := context.WithCancel(context.Background())
	janitorDone := worker.NewJanitor(cfg.OTP.CleanupInterval, logger, tasks...).Start(bgCtx)

	// 9. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	stopBackground()
	<-janitorDone

	if err := sqlDB.Close(); err != nil {
		logger.Warn("close database", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("server stopped")
}
