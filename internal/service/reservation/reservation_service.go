package reservation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/refcode"
	"github.com/Domenick1991/tripbooking/internal/repository"
)

const (
	maxRefAttempts  = 3
	expireBatchSize = 500
)

type ReservationUseCase interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ref string) (*domain.Ticket, error)
	PayTicket(ctx context.Context, ref string) (*domain.Ticket, error)
	CancelTicket(ctx context.Context, ref string) (*domain.Ticket, error)
	ExpirePendingTickets(ctx context.Context) ([]domain.Ticket, error)
}

// TripCache is dropped after every committed seat change so the cached
// listing never advertises stale availability for long.
type TripCache interface {
	InvalidateTrips(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateTicketInput struct {
	TripID        int64
	PassengerName *string
	// PriceCents falls back to the configured default when nil.
	PriceCents *int64
}

type ReservationService struct {
	store              repository.Store
	cache              TripCache
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	defaultPriceCents  int64
	holdTTL            time.Duration
	newRef             func() string
	now                func() time.Time
	logger             *slog.Logger
}

type ReservationServiceOption func(*ReservationService)

func WithTripCache(cache TripCache) ReservationServiceOption {
	return func(s *ReservationService) { s.cache = cache }
}

func WithEvents(producer Producer, topic string) ReservationServiceOption {
	return func(s *ReservationService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func WithNotificationsTopic(topic string) ReservationServiceOption {
	return func(s *ReservationService) { s.notificationsTopic = topic }
}

func WithDefaultPrice(cents int64) ReservationServiceOption {
	return func(s *ReservationService) { s.defaultPriceCents = cents }
}

// WithHoldTTL sets how long a ticket may stay pending before the expiry
// sweep cancels it. Zero keeps pending tickets forever.
func WithHoldTTL(ttl time.Duration) ReservationServiceOption {
	return func(s *ReservationService) { s.holdTTL = ttl }
}

func WithLogger(logger *slog.Logger) ReservationServiceOption {
	return func(s *ReservationService) { s.logger = logger }
}

func WithClock(now func() time.Time) ReservationServiceOption {
	return func(s *ReservationService) { s.now = now }
}

func WithRefGenerator(gen func() string) ReservationServiceOption {
	return func(s *ReservationService) { s.newRef = gen }
}

func NewReservationService(store repository.Store, opts ...ReservationServiceOption) *ReservationService {
	s := &ReservationService{
		store:             store,
		defaultPriceCents: domain.DefaultPriceCents,
		newRef:            refcode.New,
		now:               time.Now,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTicket reserves one seat on the trip and records a pending ticket for
// it in the same transaction. Either both happen or neither does.
func (s *ReservationService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	if input.TripID <= 0 {
		return nil, domain.Invalid("trip_id", "is required")
	}
	price := s.defaultPriceCents
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, domain.Invalid("price_cents", "must not be negative")
		}
		price = *input.PriceCents
	}
	var passenger *string
	if input.PassengerName != nil {
		if name := strings.TrimSpace(*input.PassengerName); name != "" {
			passenger = &name
		}
	}

	var (
		ticket *domain.Ticket
		err    error
	)
	for attempt := 1; attempt <= maxRefAttempts; attempt++ {
		ticket, err = s.reserve(ctx, input.TripID, passenger, price)
		if !errors.Is(err, domain.ErrRefCollision) {
			break
		}
		s.logger.WarnContext(ctx, "ticket ref collision, retrying", "trip_id", input.TripID, "attempt", attempt)
	}
	if errors.Is(err, domain.ErrRefCollision) {
		return nil, domain.Storage("generate ticket ref", err)
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ticket reserved", "ref", ticket.Ref, "trip_id", ticket.TripID)
	s.seatsChanged(ctx)
	s.publish(ctx, kafka.EventTicketCreated, ticket)
	return ticket, nil
}

func (s *ReservationService) reserve(ctx context.Context, tripID int64, passenger *string, price int64) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Ref:           s.newRef(),
		TripID:        tripID,
		PassengerName: passenger,
		Status:        domain.TicketStatusPending,
		PriceCents:    price,
		CreatedAt:     s.now().UTC(),
	}

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		reserved, err := tx.ReserveSeat(ctx, tripID)
		if err != nil {
			return err
		}
		if !reserved {
			exists, err := tx.TripExists(ctx, tripID)
			if err != nil {
				return err
			}
			if !exists {
				return &domain.NotFoundError{Resource: "trip", Key: fmt.Sprint(tripID)}
			}
			return fmt.Errorf("trip %d: %w", tripID, domain.ErrNoCapacity)
		}
		return tx.InsertTicket(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *ReservationService) GetTicket(ctx context.Context, ref string) (*domain.Ticket, error) {
	ref, err := normalizeRef(ref)
	if err != nil {
		return nil, err
	}
	return s.store.GetTicketByRef(ctx, ref)
}

// PayTicket marks a pending ticket paid. Paying a paid ticket returns it
// unchanged; paying a cancelled ticket is rejected. Seats are not touched.
func (s *ReservationService) PayTicket(ctx context.Context, ref string) (*domain.Ticket, error) {
	ref, err := normalizeRef(ref)
	if err != nil {
		return nil, err
	}

	var (
		result  *domain.Ticket
		changed bool
	)
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		current, err := tx.LockTicketByRef(ctx, ref)
		if err != nil {
			return err
		}
		switch current.Status {
		case domain.TicketStatusPaid:
			result = current
			return nil
		case domain.TicketStatusCancelled:
			return fmt.Errorf("pay ticket %s: ticket is cancelled: %w", ref, domain.ErrInvalidTransition)
		}

		paidAt := s.now().UTC()
		result, err = tx.UpdateTicketStatus(ctx, current.ID, domain.TicketStatusPaid, &paidAt)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.InfoContext(ctx, "ticket paid", "ref", result.Ref, "trip_id", result.TripID)
		s.publish(ctx, kafka.EventTicketPaid, result)
	}
	return result, nil
}

// CancelTicket cancels a pending or paid ticket and returns its seat to the
// trip in the same transaction. A cancelled ticket is returned unchanged, so
// a seat is released at most once per ticket.
func (s *ReservationService) CancelTicket(ctx context.Context, ref string) (*domain.Ticket, error) {
	ref, err := normalizeRef(ref)
	if err != nil {
		return nil, err
	}

	var (
		result  *domain.Ticket
		changed bool
	)
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		current, err := tx.LockTicketByRef(ctx, ref)
		if err != nil {
			return err
		}
		if !current.HoldsSeat() {
			result = current
			return nil
		}

		result, err = cancelAndRelease(ctx, tx, current)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.InfoContext(ctx, "ticket cancelled", "ref", result.Ref, "trip_id", result.TripID)
		s.seatsChanged(ctx)
		s.publish(ctx, kafka.EventTicketCancelled, result)
	}
	return result, nil
}

// ExpirePendingTickets cancels tickets that stayed pending longer than the
// hold TTL and releases their seats. One batch per call.
func (s *ReservationService) ExpirePendingTickets(ctx context.Context) ([]domain.Ticket, error) {
	if s.holdTTL <= 0 {
		return nil, nil
	}
	deadline := s.now().UTC().Add(-s.holdTTL)

	var expired []domain.Ticket
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		stale, err := tx.LockStalePending(ctx, deadline, expireBatchSize)
		if err != nil {
			return err
		}
		expired = make([]domain.Ticket, 0, len(stale))
		for i := range stale {
			updated, err := cancelAndRelease(ctx, tx, &stale[i])
			if err != nil {
				return err
			}
			expired = append(expired, *updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "expired pending tickets", "count", len(expired))
		s.seatsChanged(ctx)
		for i := range expired {
			s.publish(ctx, kafka.EventTicketExpired, &expired[i])
		}
	}
	return expired, nil
}

func cancelAndRelease(ctx context.Context, tx repository.Tx, ticket *domain.Ticket) (*domain.Ticket, error) {
	updated, err := tx.UpdateTicketStatus(ctx, ticket.ID, domain.TicketStatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	if err := tx.ReleaseSeat(ctx, ticket.TripID); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ReservationService) seatsChanged(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTrips(ctx); err != nil {
		s.logger.WarnContext(ctx, "trip cache invalidation failed", "error", err)
	}
}

func (s *ReservationService) publish(ctx context.Context, eventType string, ticket *domain.Ticket) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.NewTicketEvent(eventType, ticket, s.now().UTC())
	if err := s.producer.Publish(ctx, s.eventsTopic, ticket.Ref, event); err != nil {
		s.logger.WarnContext(ctx, "publish ticket event failed", "type", eventType, "ref", ticket.Ref, "error", err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, ticket.Ref, event); err != nil {
			s.logger.WarnContext(ctx, "publish notification failed", "type", eventType, "ref", ticket.Ref, "error", err)
		}
	}
}

func normalizeRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", domain.Invalid("ref", "is required")
	}
	return ref, nil
}

var _ ReservationUseCase = (*ReservationService)(nil)
