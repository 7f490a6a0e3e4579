package types

// Availability is the driver availability state.
type Availability string

func (a Availability) String() string {
	return string(a)
}

const (
	Offline Availability = "OFFLINE"
	Online  Availability = "ONLINE"
	Busy    Availability = "BUSY"
)

// Enum для статуса поездки
type RideStatus string

func (s RideStatus) String() string {
	return string(s)
}

const (
	RideAssigned        RideStatus = "ASSIGNED"
	RideArrivedAtPickup RideStatus = "ARRIVED_AT_PICKUP"
	RideInProgress      RideStatus = "IN_PROGRESS"
	RideCompleted       RideStatus = "COMPLETED"
	RideCancelled       RideStatus = "CANCELLED"
)

// IsTerminal reports whether the ride can no longer change status.
func (s RideStatus) IsTerminal() bool {
	return s == RideCompleted || s == RideCancelled
}

// Rank orders forward statuses. Cancelled has no rank.
func (s RideStatus) Rank() int {
	switch s {
	case RideAssigned:
		return 1
	case RideArrivedAtPickup:
		return 2
	case RideInProgress:
		return 3
	case RideCompleted:
		return 4
	default:
		return 0
	}
}

// OfferPhase is the sub-state of a held offer.
type OfferPhase string

const (
	OfferPending              OfferPhase = "PENDING"
	OfferAwaitingConfirmation OfferPhase = "AWAITING_CONFIRMATION"
)

// Enum для режима провайдера координат
type LocationMode string

const (
	LocationStatic    LocationMode = "static"
	LocationSimulated LocationMode = "simulated"
	LocationDevice    LocationMode = "device"
)
