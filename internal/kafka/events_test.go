package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketEventRoundTrip(t *testing.T) {
	name := "Ada"
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{Ref: "abcd1234", TripID: 3, PassengerName: &name, Status: domain.TicketStatusPaid, PriceCents: 2500}

	data, err := json.Marshal(NewTicketEvent(EventTicketPaid, ticket, at))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"passenger_name":"Ada"`)

	event, err := DecodeTicketEvent(data)
	require.NoError(t, err)
	assert.Equal(t, EventTicketPaid, event.Type)
	assert.Equal(t, "paid", event.Status)
	assert.Equal(t, int64(3), event.TripID)
	assert.True(t, at.Equal(event.OccurredAt))
}

func TestDecodeTicketEvent_Rejects(t *testing.T) {
	_, err := DecodeTicketEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeTicketEvent([]byte(`{"type":"ticket_paid"}`))
	assert.ErrorContains(t, err, "missing type or ref")
}

func TestNewTripEvent(t *testing.T) {
	depart := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	event := NewTripEvent(EventTripCreated, &domain.Trip{ID: 4, Origin: "A", Destination: "B", DepartAt: depart, Capacity: 30}, depart)

	assert.Equal(t, int64(4), event.TripID)
	assert.Equal(t, 30, event.Capacity)
	assert.Equal(t, EventTripCreated, event.Type)
}
