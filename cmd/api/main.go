package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	_ "time/tzdata"

	"classattend/internal/api"
	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/config"
	"classattend/internal/logger"
	"classattend/internal/metrics"
	"classattend/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config.Load -> %v", err)
	}
	if err := logger.Init(cfg.Env); err != nil {
		log.Fatalf("logger.Init -> %v", err)
	}
	defer func() { _ = zap.L().Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		zap.L().Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := store.NewDB(ctx, cfg.StoreDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("store.NewDB -> %w", err)
	}
	defer func() { _ = db.Close() }()

	probes := map[string]api.Probe{"db": db.Healthy}

	var revocations auth.Revocations
	if redisClient := store.NewRedis(cfg.RedisAddr); redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		revocations = auth.NewRedisRevocations(redisClient.Client, "")
		probes["redis"] = redisClient.Healthy
		zap.L().Info("admin revocations stored in redis", zap.String("addr", cfg.RedisAddr))
	} else {
		revocations = auth.NewMemoryRevocations()
	}

	clock := attendance.NewSystemClock(loc)
	cutoff := cfg.Cutoff()
	ledger := attendance.NewLedger(attendance.NewRepository(db.Client), clock, cutoff)
	tokens := auth.NewDayTokens(cfg.TokenSigningKey, cfg.TokenIssuer, clock.Now)
	gate := auth.NewGate(auth.GateConfig{
		Code:       cfg.AdminCode,
		CodeHash:   cfg.AdminCodeHash,
		SigningKey: cfg.TokenSigningKey,
		Issuer:     cfg.TokenIssuer,
		TTL:        cfg.AdminTTL,
	}, revocations)
	svc := attendance.NewService(ledger, tokens, gate, attendance.WithWalkUpGate(cfg.WalkUpRequiresAdmin))

	r := api.NewRouter(svc, gate, metrics.New(prometheus.DefaultRegisterer), api.Options{
		SessionSecret:   cfg.SessionSecret,
		SessionTTL:      cfg.AdminTTL,
		SecureCookies:   cfg.Production(),
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		PublicBaseURL:   cfg.PublicBaseURL,
		TimeZone:        cfg.TimeZone,
		Probes:          probes,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("store", cfg.StoreDriver),
			zap.String("cutoff", cutoff.String()),
			zap.String("time_zone", cfg.TimeZone),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("srv.ListenAndServe -> %w", err)
	}
	zap.L().Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("server forced shutdown", zap.Error(err))
	}

	zap.L().Info("server exited")
	return nil
}
