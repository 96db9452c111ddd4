package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/tripbooking/api"
	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/bootstrap"
	"github.com/Domenick1991/tripbooking/internal/cache"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/logging"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/service/reservation"
	"github.com/Domenick1991/tripbooking/internal/service/trips"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, pool, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}

	store := repository.NewStore(db)

	tripOpts := []trips.TripServiceOption{trips.WithLogger(logger)}
	reservationOpts := []reservation.ReservationServiceOption{
		reservation.WithLogger(logger),
		reservation.WithDefaultPrice(cfg.Reservation.DefaultPriceCents),
		reservation.WithHoldTTL(cfg.Reservation.HoldTTL()),
	}

	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Reservation.TripsCacheTTL())
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, trip listing will hit the database", "addr", cfg.Redis.Addr, "error", err)
		}
		tripOpts = append(tripOpts, trips.WithCache(redisCache))
		reservationOpts = append(reservationOpts, reservation.WithTripCache(redisCache))
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			logger.Warn("kafka unavailable, events will be dropped", "error", err)
		}
		tripOpts = append(tripOpts, trips.WithEvents(producer, cfg.Kafka.TicketEventsTopic))
		reservationOpts = append(reservationOpts,
			reservation.WithEvents(producer, cfg.Kafka.TicketEventsTopic),
			reservation.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}

	router := api.NewRouter(api.RouterConfig{
		Trips:          trips.NewTripService(repository.NewTripRepository(db), tripOpts...),
		Tickets:        reservation.NewReservationService(store, reservationOpts...),
		Health:         store,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	return bootstrap.Run(ctx, cfg, router, logger)
}
