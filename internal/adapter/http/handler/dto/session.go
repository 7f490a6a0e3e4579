package dto

import (
	"strings"
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/pkg/validator"
)

const maxReasonChars = 200

// DefaultDeclineReason is sent when the driver declines without a reason.
const DefaultDeclineReason = "declined_by_driver"

// DefaultCancelReason is sent when the driver cancels without a reason.
const DefaultCancelReason = "cancelled_by_driver"

func ValidateRideID(v *validator.Validator, rideID string) {
	v.Check(rideID != "", "ride_id", "must be provided")
	v.Check(validator.Matches(rideID, validator.RideIDRX), "ride_id", "invalid format")
}

type DeclineReq struct {
	Reason string `json:"reason"`
}

func (r *DeclineReq) Validate(v *validator.Validator) {
	v.Check(validator.MaxChars(r.Reason, maxReasonChars), "reason", "must not be more than 200 characters")
}

func (r *DeclineReq) GetReason() string {
	if reason := strings.TrimSpace(r.Reason); reason != "" {
		return reason
	}
	return DefaultDeclineReason
}

type CancelRideReq struct {
	Reason string `json:"reason"`
}

func (r *CancelRideReq) Validate(v *validator.Validator) {
	v.Check(validator.MaxChars(r.Reason, maxReasonChars), "reason", "must not be more than 200 characters")
}

func (r *CancelRideReq) GetReason() string {
	if reason := strings.TrimSpace(r.Reason); reason != "" {
		return reason
	}
	return DefaultCancelReason
}

type OfflineAfterRideReq struct {
	Enabled *bool `json:"enabled"`
}

func (r *OfflineAfterRideReq) Validate(v *validator.Validator) {
	v.Check(r.Enabled != nil, "enabled", "must be provided")
}

type UpdateLocationReq struct {
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	AccuracyMeters float64    `json:"accuracy_meters"`
	SpeedKmh       float64    `json:"speed_kmh"`
	HeadingDegrees float64    `json:"heading_degrees"`
	Timestamp      *time.Time `json:"timestamp"`
}

func (r *UpdateLocationReq) Validate(v *validator.Validator) {
	v.Check(r.Latitude != nil, "latitude", "must be provided")
	v.Check(r.Longitude != nil, "longitude", "must be provided")
	if r.Latitude != nil {
		v.Check(validator.Between(*r.Latitude, -90, 90), "latitude", "must be between -90 and 90")
	}
	if r.Longitude != nil {
		v.Check(validator.Between(*r.Longitude, -180, 180), "longitude", "must be between -180 and 180")
	}
	v.Check(r.AccuracyMeters >= 0, "accuracy_meters", "must not be negative")
	v.Check(r.SpeedKmh >= 0, "speed_kmh", "must not be negative")
	v.Check(validator.Between(r.HeadingDegrees, 0, 360), "heading_degrees", "must be between 0 and 360")
}

// ToModel leaves the timestamp zero when the client sent none.
func (r *UpdateLocationReq) ToModel() models.LocationSample {
	var ts time.Time
	if r.Timestamp != nil {
		ts = r.Timestamp.UTC()
	}
	return models.LocationSample{
		Latitude:       *r.Latitude,
		Longitude:      *r.Longitude,
		AccuracyMeters: r.AccuracyMeters,
		SpeedKmh:       r.SpeedKmh,
		HeadingDegrees: r.HeadingDegrees,
		Timestamp:      ts,
	}
}
