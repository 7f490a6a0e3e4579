package models

import (
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
)

// RideOffer is a time-boxed proposal held by the offer arbiter.
type RideOffer struct {
	RideID               string           `json:"ride_id"`
	OfferID              string           `json:"offer_id,omitempty"`
	RideNumber           string           `json:"ride_number,omitempty"`
	Passenger            Passenger        `json:"passenger"`
	Pickup               Location         `json:"pickup_location"`
	Dropoff              Location         `json:"dropoff_location"`
	EstimatedFare        float64          `json:"estimated_fare"`
	EstimatedDistanceKm  float64          `json:"estimated_distance_km"`
	EstimatedDurationMin int              `json:"estimated_duration_minutes"`
	Phase                types.OfferPhase `json:"phase"`
	CreatedAt            time.Time        `json:"created_at"`
	ExpiresAt            time.Time        `json:"expires_at"`
}
