package types

// EventKind discriminates session events delivered to observers.
type EventKind string

func (k EventKind) String() string {
	return string(k)
}

const (
	EventOfferReceived       EventKind = "OFFER_RECEIVED"
	EventAssignmentConfirmed EventKind = "ASSIGNMENT_CONFIRMED"
	EventAssignmentFailed    EventKind = "ASSIGNMENT_FAILED"
	EventOfferExpired        EventKind = "OFFER_EXPIRED"
	EventRideCancelled       EventKind = "RIDE_CANCELLED"
	EventConnectionError     EventKind = "CONNECTION_ERROR"

	EventRideStatusChanged   EventKind = "RIDE_STATUS_CHANGED"
	EventAvailabilityChanged EventKind = "AVAILABILITY_CHANGED"
	EventConnectionRestored  EventKind = "CONNECTION_RESTORED"
	EventStateReconciled     EventKind = "STATE_RECONCILED"
)
