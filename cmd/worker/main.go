package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/cache"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/logging"
	"github.com/Domenick1991/tripbooking/internal/notify"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/service/reservation"
	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	kafkaGo "github.com/segmentio/kafka-go"
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

	logger := logging.New(cfg.Log, os.Stderr).With("component", "worker")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker error", "error", err)
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

	opts := []reservation.ReservationServiceOption{
		reservation.WithLogger(logger),
		reservation.WithHoldTTL(cfg.Reservation.HoldTTL()),
	}
	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Reservation.TripsCacheTTL())
		defer redisCache.Close()
		opts = append(opts, reservation.WithTripCache(redisCache))
	}
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		opts = append(opts,
			reservation.WithEvents(producer, cfg.Kafka.TicketEventsTopic),
			reservation.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}
	reservationService := reservation.NewReservationService(repository.NewStore(db), opts...)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Duration(cfg.Worker.ExpirationSweepMinutes)*time.Minute),
		gocron.NewTask(func() {
			expired, err := reservationService.ExpirePendingTickets(ctx)
			if err != nil {
				logger.Error("expire pending tickets", "error", err)
				return
			}
			if len(expired) > 0 {
				logger.Info("expired pending tickets", "count", len(expired))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("expire-pending-tickets"),
	)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Warn("scheduler shutdown", "error", err)
		}
	}()

	if cfg.Kafka.Enabled() && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
		defer consumer.Close()

		sender := notify.NewSender(logger)
		go func() {
			err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
				event, err := kafka.DecodeTicketEvent(msg.Value)
				if err != nil {
					logger.Warn("skip undecodable event", "offset", msg.Offset, "error", err)
					return nil
				}
				return sender.Send(ctx, event)
			})
			if err != nil {
				logger.Error("consumer stopped", "error", err)
			}
		}()
	}

	logger.Info("worker started", "sweep_minutes", cfg.Worker.ExpirationSweepMinutes)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
