package trips

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/repository"
)

type TripUseCase interface {
	List(ctx context.Context) ([]domain.Trip, error)
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
	Create(ctx context.Context, input CreateTripInput) (*domain.Trip, error)
}

// TripCache holds the trip listing. Every invalidation bumps a generation;
// SetTrips only stores a listing read under the generation it is given, so a
// read that raced a seat change is never cached.
type TripCache interface {
	GetTrips(ctx context.Context) ([]domain.Trip, error)
	TripsGeneration(ctx context.Context) (int64, error)
	SetTrips(ctx context.Context, generation int64, trips []domain.Trip) error
	InvalidateTrips(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateTripInput struct {
	Origin      string
	Destination string
	DepartAt    time.Time
	Capacity    int
}

type TripService struct {
	repo        repository.TripRepository
	cache       TripCache
	producer    Producer
	eventsTopic string
	logger      *slog.Logger
	now         func() time.Time
}

type TripServiceOption func(*TripService)

func WithCache(cache TripCache) TripServiceOption {
	return func(s *TripService) { s.cache = cache }
}

func WithEvents(producer Producer, topic string) TripServiceOption {
	return func(s *TripService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func WithLogger(logger *slog.Logger) TripServiceOption {
	return func(s *TripService) { s.logger = logger }
}

func NewTripService(repo repository.TripRepository, opts ...TripServiceOption) *TripService {
	s := &TripService{
		repo:   repo,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all trips ordered by departure, served from cache when warm.
func (s *TripService) List(ctx context.Context) ([]domain.Trip, error) {
	if s.cache != nil {
		cached, err := s.cache.GetTrips(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "trip cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	generation, cacheable := s.cacheGeneration(ctx)

	trips, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.cache.SetTrips(ctx, generation, trips); err != nil {
			s.logger.WarnContext(ctx, "trip cache write failed", "error", err)
		}
	}
	return trips, nil
}

// cacheGeneration must be read before the store so that any seat change
// committed after the read invalidates the listing about to be cached.
func (s *TripService) cacheGeneration(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	generation, err := s.cache.TripsGeneration(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "trip cache generation read failed", "error", err)
		return 0, false
	}
	return generation, true
}

// GetByID always reads the store so seat counts are current.
func (s *TripService) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	if id <= 0 {
		return nil, domain.Invalid("id", "must be a positive integer")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *TripService) Create(ctx context.Context, input CreateTripInput) (*domain.Trip, error) {
	trip := &domain.Trip{
		Origin:      strings.TrimSpace(input.Origin),
		Destination: strings.TrimSpace(input.Destination),
		DepartAt:    input.DepartAt.UTC(),
		Capacity:    input.Capacity,
	}
	switch {
	case trip.Origin == "":
		return nil, domain.Invalid("origin", "is required")
	case trip.Destination == "":
		return nil, domain.Invalid("destination", "is required")
	case input.DepartAt.IsZero():
		return nil, domain.Invalid("depart_at", "is required")
	case trip.Capacity <= 0:
		return nil, domain.Invalid("capacity", "must be positive")
	case trip.Capacity > domain.MaxTripCapacity:
		return nil, domain.Invalid("capacity", fmt.Sprintf("must be at most %d", domain.MaxTripCapacity))
	}

	if err := s.repo.Create(ctx, trip); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateTrips(ctx); err != nil {
			s.logger.WarnContext(ctx, "trip cache invalidation failed", "error", err)
		}
	}
	if s.producer != nil && s.eventsTopic != "" {
		event := kafka.NewTripEvent(kafka.EventTripCreated, trip, s.now())
		if err := s.producer.Publish(ctx, s.eventsTopic, strconv.FormatInt(trip.ID, 10), event); err != nil {
			s.logger.WarnContext(ctx, "publish trip event failed", "trip_id", trip.ID, "error", err)
		}
	}
	s.logger.InfoContext(ctx, "trip created", "trip_id", trip.ID, "capacity", trip.Capacity)
	return trip, nil
}

var _ TripUseCase = (*TripService)(nil)
