package models

import (
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	"github.com/google/uuid"
)

// Event is a discrete notification fanned out to observers.
type Event struct {
	ID           uuid.UUID          `json:"id"`
	Kind         types.EventKind    `json:"kind"`
	RideID       string             `json:"ride_id,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Status       types.RideStatus   `json:"status,omitempty"`
	Availability types.Availability `json:"availability,omitempty"`
	Offer        *RideOffer         `json:"offer,omitempty"`
	Ride         *ActiveRide        `json:"ride,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

// NewEvent creates an event of the given kind stamped with at.
func NewEvent(kind types.EventKind, at time.Time) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		Timestamp: at,
	}
}
