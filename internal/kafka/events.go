package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

const (
	EventTripCreated     = "trip_created"
	EventTicketCreated   = "ticket_created"
	EventTicketPaid      = "ticket_paid"
	EventTicketCancelled = "ticket_cancelled"
	EventTicketExpired   = "ticket_expired"
)

type TicketEvent struct {
	Type          string    `json:"type"`
	Ref           string    `json:"ref"`
	TripID        int64     `json:"trip_id"`
	PassengerName string    `json:"passenger_name,omitempty"`
	Status        string    `json:"status"`
	PriceCents    int64     `json:"price_cents"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type TripEvent struct {
	Type        string    `json:"type"`
	TripID      int64     `json:"trip_id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartAt    time.Time `json:"depart_at"`
	Capacity    int       `json:"capacity"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewTicketEvent(eventType string, t *domain.Ticket, at time.Time) TicketEvent {
	event := TicketEvent{
		Type:       eventType,
		Ref:        t.Ref,
		TripID:     t.TripID,
		Status:     string(t.Status),
		PriceCents: t.PriceCents,
		OccurredAt: at,
	}
	if t.PassengerName != nil {
		event.PassengerName = *t.PassengerName
	}
	return event
}

func NewTripEvent(eventType string, t *domain.Trip, at time.Time) TripEvent {
	return TripEvent{
		Type:        eventType,
		TripID:      t.ID,
		Origin:      t.Origin,
		Destination: t.Destination,
		DepartAt:    t.DepartAt,
		Capacity:    t.Capacity,
		OccurredAt:  at,
	}
}

// DecodeTicketEvent parses a message value written for a ticket event.
func DecodeTicketEvent(value []byte) (TicketEvent, error) {
	var event TicketEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return TicketEvent{}, fmt.Errorf("decode ticket event: %w", err)
	}
	if event.Type == "" || event.Ref == "" {
		return TicketEvent{}, fmt.Errorf("decode ticket event: missing type or ref")
	}
	return event, nil
}
