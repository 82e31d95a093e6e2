package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/romanzh1/vocab-srs/internal/handler"
	"github.com/romanzh1/vocab-srs/internal/repository"
	"github.com/romanzh1/vocab-srs/internal/scheduler"
	"github.com/romanzh1/vocab-srs/internal/service"
	"github.com/romanzh1/vocab-srs/pkg/clock"
)

func main() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := godotenv.Load(); err != nil {
		zap.S().Info("no .env file, using environment")
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		zap.S().Fatal("DATABASE_DSN is required")
	}

	repo, err := repository.NewDB(dsn, envInt("DB_MAX_IDLE", 5), envInt("DB_MAX_OPEN", 20))
	if err != nil {
		zap.S().Fatalw("connect to database", "error", err)
	}
	defer repo.Close()

	if err := repo.Up("migrations"); err != nil {
		zap.S().Fatalw("run migrations", "error", err)
	}

	machine := clock.NewMachine(nil)
	svc := service.New(repo, machine)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(svc)
	sweepInterval := time.Duration(envInt("SWEEP_INTERVAL_MINUTES", 5)) * time.Minute
	if err := sched.Start(ctx, sweepInterval); err != nil {
		zap.S().Fatalw("start scheduler", "error", err)
	}
	defer sched.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	handler.New(svc, machine).Register(e)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("start http server", "error", err)
		}
	}()
	zap.S().Infow("server started", "addr", addr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorw("shutdown http server", "error", err)
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		zap.S().Warnw("invalid integer env var, using default", "key", key, "value", v)
		return def
	}
	return n
}
