package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	ticketColumns = `id, ref, trip_id, passenger_name, status, price_cents, created_at, paid_at`

	uniqueViolation = "23505"
	ticketRefKey    = "tickets_ref_key"
)

// Tx is the set of primitives the reservation engine composes inside a single
// database transaction.
type Tx interface {
	// ReserveSeat decrements seats_available only while it is above zero and
	// reports whether a seat was taken.
	ReserveSeat(ctx context.Context, tripID int64) (bool, error)
	ReleaseSeat(ctx context.Context, tripID int64) error
	TripExists(ctx context.Context, tripID int64) (bool, error)
	InsertTicket(ctx context.Context, ticket *domain.Ticket) error
	// LockTicketByRef reads the ticket and holds its row lock until the
	// transaction ends.
	LockTicketByRef(ctx context.Context, ref string) (*domain.Ticket, error)
	UpdateTicketStatus(ctx context.Context, id int64, status domain.TicketStatus, paidAt *time.Time) (*domain.Ticket, error)
	// LockStalePending locks up to limit pending tickets created before the
	// deadline, skipping rows other transactions already hold.
	LockStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Ticket, error)
}

type pgTx struct {
	q querier
}

func (t *pgTx) ReserveSeat(ctx context.Context, tripID int64) (bool, error) {
	res, err := t.q.ExecContext(ctx, `UPDATE trips SET seats_available = seats_available - 1 WHERE id=$1 AND seats_available > 0`, tripID)
	if err != nil {
		return false, domain.Storage("reserve seat", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.Storage("reserve seat", err)
	}
	return n == 1, nil
}

func (t *pgTx) ReleaseSeat(ctx context.Context, tripID int64) error {
	res, err := t.q.ExecContext(ctx, `UPDATE trips SET seats_available = seats_available + 1 WHERE id=$1`, tripID)
	if err != nil {
		return domain.Storage("release seat", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Storage("release seat", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Resource: "trip", Key: fmt.Sprint(tripID)}
	}
	return nil
}

func (t *pgTx) TripExists(ctx context.Context, tripID int64) (bool, error) {
	var exists bool
	if err := t.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id=$1)`, tripID).Scan(&exists); err != nil {
		return false, domain.Storage("check trip", err)
	}
	return exists, nil
}

func (t *pgTx) InsertTicket(ctx context.Context, ticket *domain.Ticket) error {
	err := t.q.QueryRowContext(ctx, `INSERT INTO tickets (ref, trip_id, passenger_name, status, price_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`, ticket.Ref, ticket.TripID, nullString(ticket.PassengerName), ticket.Status, ticket.PriceCents, ticket.CreatedAt).
		Scan(&ticket.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == ticketRefKey {
			return domain.ErrRefCollision
		}
		return domain.Storage("insert ticket", err)
	}
	return nil
}

func (t *pgTx) LockTicketByRef(ctx context.Context, ref string) (*domain.Ticket, error) {
	ticket, err := scanTicket(t.q.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ref=$1 FOR UPDATE`, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "ticket", Key: ref}
		}
		return nil, domain.Storage("lock ticket", err)
	}
	return ticket, nil
}

func (t *pgTx) UpdateTicketStatus(ctx context.Context, id int64, status domain.TicketStatus, paidAt *time.Time) (*domain.Ticket, error) {
	ticket, err := scanTicket(t.q.QueryRowContext(ctx, `UPDATE tickets SET status=$1, paid_at=COALESCE($2, paid_at) WHERE id=$3 RETURNING `+ticketColumns,
		status, nullTime(paidAt), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "ticket", Key: fmt.Sprint(id)}
		}
		return nil, domain.Storage("update ticket status", err)
	}
	return ticket, nil
}

func (t *pgTx) LockStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Ticket, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets
		WHERE status=$1 AND created_at <= $2
		ORDER BY created_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`, domain.TicketStatusPending, createdBefore, limit)
	if err != nil {
		return nil, domain.Storage("lock stale tickets", err)
	}
	defer rows.Close()

	var stale []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, domain.Storage("scan ticket", err)
		}
		stale = append(stale, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("lock stale tickets", err)
	}
	return stale, nil
}

func scanTicket(row scanner) (*domain.Ticket, error) {
	var (
		t         domain.Ticket
		passenger sql.NullString
		status    string
		paidAt    sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Ref, &t.TripID, &passenger, &status, &t.PriceCents, &t.CreatedAt, &paidAt); err != nil {
		return nil, err
	}
	t.Status = domain.TicketStatus(status)
	if !t.Status.Valid() {
		return nil, fmt.Errorf("ticket %d: unknown status %q", t.ID, status)
	}
	if passenger.Valid {
		t.PassengerName = &passenger.String
	}
	if paidAt.Valid {
		t.PaidAt = &paidAt.Time
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Tx = (*pgTx)(nil)
