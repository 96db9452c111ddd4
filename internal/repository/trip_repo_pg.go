package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

const tripColumns = `id, origin, destination, depart_at, capacity, seats_available, created_at`

type TripRepository interface {
	List(ctx context.Context) ([]domain.Trip, error)
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
	Create(ctx context.Context, trip *domain.Trip) error
}

type PGTripRepository struct {
	db *sql.DB
}

func NewTripRepository(db *sql.DB) TripRepository {
	return &PGTripRepository{db: db}
}

func (r *PGTripRepository) List(ctx context.Context) ([]domain.Trip, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tripColumns+` FROM trips ORDER BY depart_at ASC, id ASC`)
	if err != nil {
		return nil, domain.Storage("list trips", err)
	}
	defer rows.Close()

	trips := make([]domain.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, domain.Storage("scan trip", err)
		}
		trips = append(trips, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("list trips", err)
	}
	return trips, nil
}

func (r *PGTripRepository) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	t, err := scanTrip(r.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "trip", Key: strconv.FormatInt(id, 10)}
		}
		return nil, domain.Storage("get trip", err)
	}
	return t, nil
}

// Create inserts the trip with every seat available and fills in ID and CreatedAt.
func (r *PGTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	trip.SeatsAvailable = trip.Capacity
	err := r.db.QueryRowContext(ctx, `INSERT INTO trips (origin, destination, depart_at, capacity, seats_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`, trip.Origin, trip.Destination, trip.DepartAt, trip.Capacity, trip.SeatsAvailable).
		Scan(&trip.ID, &trip.CreatedAt)
	if err != nil {
		return domain.Storage("create trip", err)
	}
	return nil
}

func scanTrip(row scanner) (*domain.Trip, error) {
	var t domain.Trip
	if err := row.Scan(&t.ID, &t.Origin, &t.Destination, &t.DepartAt, &t.Capacity, &t.SeatsAvailable, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

var _ TripRepository = (*PGTripRepository)(nil)
