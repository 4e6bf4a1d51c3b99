package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/salon-booking/internal/config"
	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/handler"
	"github.com/iliyamo/salon-booking/internal/metrics"
	"github.com/iliyamo/salon-booking/internal/middleware"
	"github.com/iliyamo/salon-booking/internal/notify"
	"github.com/iliyamo/salon-booking/internal/queue"
	"github.com/iliyamo/salon-booking/internal/repository"
	"github.com/iliyamo/salon-booking/internal/router"
	"github.com/iliyamo/salon-booking/internal/service"
	"github.com/iliyamo/salon-booking/internal/sms"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := config.Load()
	logger := newLogger(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	defer db.Close()
	repos := repository.NewSet(db)

	// Redis only backs the send-otp limiter and the readiness probe, so the
	// service starts without it.
	var rdb *redis.Client
	if cfg.RateLimit.Enabled {
		rdb, err = config.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, send-otp limiter disabled")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	gateway, err := sms.New(cfg.SMS, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("sms gateway")
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier service.Notifier = notify.NewDirect(gateway, logger)
	if cfg.NotifyMode == "amqp" {
		notifier = notify.NewQueued(queue.NewPublisher(cfg.AMQPURL))
		consumer := queue.NewConsumer(cfg.AMQPURL, gateway, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("notification consumer stopped")
			}
		}()
	}

	opts := []service.Option{
		service.WithHoldTTL(cfg.Booking.HoldTTL),
		service.WithManageTokenTTL(cfg.Booking.ManageTokenTTL),
		service.WithCountryCode(cfg.Booking.DefaultCountryCode),
		service.WithOTPConfig(cfg.OTP),
	}
	holds := service.NewHoldService(db, repos, notifier, cfg.ManageTokenSecret, cfg.PublicBaseURL, logger, opts...)
	otp := service.NewOtpService(db, repos, gateway, logger, opts...)
	manage := service.NewManageService(db, repos, notifier, cfg.ManageTokenSecret, cfg.PublicBaseURL, logger, opts...)
	sweeper := service.NewSweeper(db, repos, logger, opts...)
	if cfg.Sweeper.Enabled {
		sweeper.Start(ctx, cfg.Sweeper.Interval)
		defer sweeper.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(logger))

	router.RegisterRoutes(e, &handler.HealthHandler{DB: db, Redis: rdb})
	router.RegisterCustomer(e,
		handler.NewHoldHandler(holds),
		handler.NewOtpHandler(otp, holds),
		middleware.NewTokenBucket(cfg.RateLimit, rdb, logger),
	)
	router.RegisterManage(e, handler.NewManageHandler(manage))
	router.RegisterOwner(e, handler.NewAdminHandler(sweeper), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Str("notify", cfg.NotifyMode).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

// newLogger writes human readable output in dev and JSON elsewhere.
func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	var logger zerolog.Logger
	if cfg.Env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "salon-booking").Logger()
}
