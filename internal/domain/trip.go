package domain

import (
	"math"
	"time"
)

// MaxTripCapacity is the largest capacity the trips table can store.
const MaxTripCapacity = math.MaxInt32

type Trip struct {
	ID             int64
	Origin         string
	Destination    string
	DepartAt       time.Time
	Capacity       int
	SeatsAvailable int
	CreatedAt      time.Time
}
