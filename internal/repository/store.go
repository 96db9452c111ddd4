package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

// Store is the inventory store: transactional access to trips and tickets.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetTicketByRef(ctx context.Context, ref string) (*domain.Ticket, error)
}

type PGStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// InTx runs fn inside one transaction. Any error returned by fn, or a panic,
// rolls the transaction back; otherwise it is committed.
func (s *PGStore) InTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Storage("begin", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&pgTx{q: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return domain.Storage("commit", err)
	}
	return nil
}

func (s *PGStore) GetTicketByRef(ctx context.Context, ref string) (*domain.Ticket, error) {
	ticket, err := scanTicket(s.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ref=$1`, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "ticket", Key: ref}
		}
		return nil, domain.Storage("get ticket", err)
	}
	return ticket, nil
}

// Ping reports whether the database answers.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ Store = (*PGStore)(nil)
