package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Domenick1991/tripbooking/internal/kafka"
)

// Sender turns ticket events into passenger notifications. Delivery is a
// structured log line until a mail or push transport is configured.
type Sender struct {
	logger *slog.Logger
}

func NewSender(logger *slog.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.TicketEvent) error {
	msg, ok := Message(event)
	if !ok {
		s.logger.DebugContext(ctx, "no notification for event", "type", event.Type, "ref", event.Ref)
		return nil
	}
	s.logger.InfoContext(ctx, "notify passenger",
		"ref", event.Ref,
		"trip_id", event.TripID,
		"passenger", event.PassengerName,
		"message", msg,
	)
	return nil
}

// Message renders the text sent for an event. Events that passengers do not
// hear about report false.
func Message(event kafka.TicketEvent) (string, bool) {
	switch event.Type {
	case kafka.EventTicketCreated:
		return fmt.Sprintf("Ticket %s reserved on trip %d, awaiting payment of %s.", event.Ref, event.TripID, formatCents(event.PriceCents)), true
	case kafka.EventTicketPaid:
		return fmt.Sprintf("Ticket %s is paid. Have a good trip.", event.Ref), true
	case kafka.EventTicketCancelled:
		return fmt.Sprintf("Ticket %s was cancelled.", event.Ref), true
	case kafka.EventTicketExpired:
		return fmt.Sprintf("Ticket %s expired before payment and its seat was released.", event.Ref), true
	}
	return "", false
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
