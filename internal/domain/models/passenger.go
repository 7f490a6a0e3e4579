package models

// Passenger is the passenger summary shown to the driver.
type Passenger struct {
	ID     string  `json:"passenger_id,omitempty"`
	Name   string  `json:"passenger_name"`
	Phone  string  `json:"passenger_phone,omitempty"`
	Rating float64 `json:"passenger_rating,omitempty"`
}
