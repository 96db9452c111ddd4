package reservation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
)

// memStore is an in-memory inventory store. Transactions run one at a time
// against a snapshot that is restored when the callback fails.
type memStore struct {
	mu           sync.Mutex
	trips        map[int64]domain.Trip
	tickets      map[int64]domain.Ticket
	nextTicketID int64

	// insertErr, when set, fails every ticket insert.
	insertErr error
	commits   int
	rollbacks int
}

func newMemStore(trips ...domain.Trip) *memStore {
	m := &memStore{
		trips:   make(map[int64]domain.Trip),
		tickets: make(map[int64]domain.Ticket),
	}
	for _, t := range trips {
		m.trips[t.ID] = t
	}
	return m
}

func (m *memStore) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tripsSnap := make(map[int64]domain.Trip, len(m.trips))
	for k, v := range m.trips {
		tripsSnap[k] = v
	}
	ticketsSnap := make(map[int64]domain.Ticket, len(m.tickets))
	for k, v := range m.tickets {
		ticketsSnap[k] = v
	}
	nextSnap := m.nextTicketID

	if err := fn(&memTx{m: m}); err != nil {
		m.trips, m.tickets, m.nextTicketID = tripsSnap, ticketsSnap, nextSnap
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

func (m *memStore) GetTicketByRef(ctx context.Context, ref string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.Ref == ref {
			return &t, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "ticket", Key: ref}
}

func (m *memStore) trip(id int64) domain.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trips[id]
}

func (m *memStore) ticketCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

func (m *memStore) seed(t domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTicketID++
	t.ID = m.nextTicketID
	m.tickets[t.ID] = t
}

// memTx runs with memStore.mu held by InTx.
type memTx struct {
	m *memStore
}

func (tx *memTx) ReserveSeat(ctx context.Context, tripID int64) (bool, error) {
	trip, ok := tx.m.trips[tripID]
	if !ok || trip.SeatsAvailable <= 0 {
		return false, nil
	}
	trip.SeatsAvailable--
	tx.m.trips[tripID] = trip
	return true, nil
}

func (tx *memTx) ReleaseSeat(ctx context.Context, tripID int64) error {
	trip, ok := tx.m.trips[tripID]
	if !ok {
		return &domain.NotFoundError{Resource: "trip", Key: fmt.Sprint(tripID)}
	}
	if trip.SeatsAvailable+1 > trip.Capacity {
		return domain.Storage("release seat", fmt.Errorf("check constraint violated on trip %d", tripID))
	}
	trip.SeatsAvailable++
	tx.m.trips[tripID] = trip
	return nil
}

func (tx *memTx) TripExists(ctx context.Context, tripID int64) (bool, error) {
	_, ok := tx.m.trips[tripID]
	return ok, nil
}

func (tx *memTx) InsertTicket(ctx context.Context, ticket *domain.Ticket) error {
	if tx.m.insertErr != nil {
		return tx.m.insertErr
	}
	if _, ok := tx.m.trips[ticket.TripID]; !ok {
		return domain.Storage("insert ticket", fmt.Errorf("foreign key violation"))
	}
	for _, t := range tx.m.tickets {
		if t.Ref == ticket.Ref {
			return domain.ErrRefCollision
		}
	}
	tx.m.nextTicketID++
	ticket.ID = tx.m.nextTicketID
	tx.m.tickets[ticket.ID] = *ticket
	return nil
}

func (tx *memTx) LockTicketByRef(ctx context.Context, ref string) (*domain.Ticket, error) {
	for _, t := range tx.m.tickets {
		if t.Ref == ref {
			return &t, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "ticket", Key: ref}
}

func (tx *memTx) UpdateTicketStatus(ctx context.Context, id int64, status domain.TicketStatus, paidAt *time.Time) (*domain.Ticket, error) {
	t, ok := tx.m.tickets[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "ticket", Key: fmt.Sprint(id)}
	}
	t.Status = status
	if paidAt != nil {
		at := *paidAt
		t.PaidAt = &at
	}
	tx.m.tickets[id] = t
	return &t, nil
}

func (tx *memTx) LockStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Ticket, error) {
	var stale []domain.Ticket
	for _, t := range tx.m.tickets {
		if t.Status == domain.TicketStatusPending && !t.CreatedAt.After(createdBefore) {
			stale = append(stale, t)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

var (
	_ repository.Store = (*memStore)(nil)
	_ repository.Tx    = (*memTx)(nil)
)
