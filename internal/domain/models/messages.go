package models

import (
	"encoding/json"
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
)

// Message is the transport envelope exchanged with the dispatch backend.
type Message struct {
	ID        string            `json:"id,omitempty"`
	Type      types.MessageType `json:"type"`
	Data      json.RawMessage   `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

/* ======================= inbound ======================= */

// RideOfferMessage carries ride.offer
type RideOfferMessage struct {
	OfferID              string    `json:"offer_id,omitempty"`
	RideID               string    `json:"ride_id"`
	RideNumber           string    `json:"ride_number,omitempty"`
	Passenger            Passenger `json:"passenger"`
	PickupLocation       Location  `json:"pickup_location"`
	DropoffLocation      Location  `json:"dropoff_location"`
	EstimatedFare        float64   `json:"estimated_fare"`
	EstimatedDistanceKm  float64   `json:"estimated_distance_km"`
	EstimatedDurationMin int       `json:"estimated_duration_minutes"`
	ExpiresAt            time.Time `json:"expires_at,omitzero"`
}

// ReasonMessage carries ride.offer.rejected, ride.cancelled
type ReasonMessage struct {
	RideID string `json:"ride_id,omitempty"`
	Reason string `json:"reason"`
}

// RideDetailsMessage carries ride.assigned.confirmed
type RideDetailsMessage struct {
	RideID          string    `json:"ride_id"`
	RideNumber      string    `json:"ride_number,omitempty"`
	Passenger       Passenger `json:"passenger"`
	PickupLocation  Location  `json:"pickup_location"`
	DropoffLocation Location  `json:"dropoff_location"`
	Price           float64   `json:"price"`
}

// RideStatusMessage carries ride.status.update
type RideStatusMessage struct {
	RideID string           `json:"ride_id"`
	Status types.RideStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
}

// SessionStateMessage carries session.state, the server's authoritative view sent
// in reply to session.sync.
type SessionStateMessage struct {
	Availability types.Availability  `json:"availability"`
	Offer        *RideOfferMessage   `json:"offer,omitempty"`
	Ride         *RideDetailsMessage `json:"ride,omitempty"`
	RideStatus   types.RideStatus    `json:"ride_status,omitempty"`
}

// TransportStatusMessage carries transport.disconnected, transport.connected
type TransportStatusMessage struct {
	Error string `json:"error,omitempty"`
}

/* ======================= outbound ======================= */

type PresenceMessage struct {
	DriverID string    `json:"driver_id"`
	Location *Location `json:"location,omitempty"`
}

type OfferResponseMessage struct {
	RideID  string `json:"ride_id"`
	OfferID string `json:"offer_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type RideCommandMessage struct {
	RideID string `json:"ride_id"`
	Reason string `json:"reason,omitempty"`
}

type LocationUpdateMessage struct {
	DriverID string `json:"driver_id"`
	RideID   string `json:"ride_id,omitempty"`
	LocationSample
}

type SyncRequestMessage struct {
	DriverID string `json:"driver_id"`
	RideID   string `json:"ride_id,omitempty"`
	OfferID  string `json:"offer_id,omitempty"`
}

type AuthMessage struct {
	Token string `json:"token"`
}
