package models

import (
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
)

// ActiveRide is the ride under execution.
type ActiveRide struct {
	ID         string           `json:"ride_id"`
	RideNumber string           `json:"ride_number,omitempty"`
	Passenger  Passenger        `json:"passenger"`
	Pickup     Location         `json:"pickup_location"`
	Dropoff    Location         `json:"dropoff_location"`
	Price      float64          `json:"price"`
	Status     types.RideStatus `json:"status"`

	// Временные метки
	AssignedAt  time.Time  `json:"assigned_at"`
	ArrivedAt   *time.Time `json:"arrived_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	// Причина отмены, есть только у отмененных поездок
	CancellationReason string `json:"cancellation_reason,omitempty"`
}

// Stamp records the transition time for status.
func (r *ActiveRide) Stamp(status types.RideStatus, at time.Time) {
	switch status {
	case types.RideArrivedAtPickup:
		r.ArrivedAt = &at
	case types.RideInProgress:
		r.StartedAt = &at
	case types.RideCompleted:
		r.CompletedAt = &at
	case types.RideCancelled:
		r.CancelledAt = &at
	}
}
