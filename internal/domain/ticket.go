package domain

import "time"

type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusPaid      TicketStatus = "paid"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// DefaultPriceCents is charged when a reservation does not name a price.
const DefaultPriceCents int64 = 10000

type Ticket struct {
	ID            int64
	Ref           string
	TripID        int64
	PassengerName *string
	Status        TicketStatus
	PriceCents    int64
	CreatedAt     time.Time
	PaidAt        *time.Time
}

// HoldsSeat reports whether the ticket still accounts for one seat of its trip.
func (t Ticket) HoldsSeat() bool {
	return t.Status == TicketStatusPending || t.Status == TicketStatusPaid
}

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusPaid, TicketStatusCancelled:
		return true
	}
	return false
}
