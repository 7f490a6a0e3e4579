package models

import (
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
)

// Snapshot is the read-only view of a session handed to the presentation layer.
// Offer and Ride are copies.
type Snapshot struct {
	DriverID         string             `json:"driver_id"`
	Availability     types.Availability `json:"availability"`
	Offer            *RideOffer         `json:"offer,omitempty"`
	Ride             *ActiveRide        `json:"ride,omitempty"`
	LastError        string             `json:"last_error,omitempty"`
	Connected        bool               `json:"connected"`
	Reconciling      bool               `json:"reconciling"`
	OfflineAfterRide bool               `json:"offline_after_ride"`
	Summary          SessionSummary     `json:"summary"`
}

// SessionSummary accumulates figures since the driver last went online.
type SessionSummary struct {
	OnlineSince    *time.Time `json:"online_since,omitempty"`
	RidesCompleted int        `json:"rides_completed"`
	RidesCancelled int        `json:"rides_cancelled"`
	Earnings       float64    `json:"earnings"`
}
