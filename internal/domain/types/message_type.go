package types

// MessageType is the "type" field of a transport envelope.
type MessageType string

func (t MessageType) String() string {
	return string(t)
}

// Inbound, from the dispatch backend
const (
	MsgRideOffer             MessageType = "ride.offer"
	MsgRideOfferRejected     MessageType = "ride.offer.rejected"
	MsgRideAssignedConfirmed MessageType = "ride.assigned.confirmed"
	MsgRideStatusUpdate      MessageType = "ride.status.update"
	MsgRideCancelled         MessageType = "ride.cancelled"
	MsgSessionState          MessageType = "session.state"
)

// Synthetic, produced by the transport adapter itself
const (
	MsgTransportDisconnected MessageType = "transport.disconnected"
	MsgTransportConnected    MessageType = "transport.connected"
)

// Outbound, to the dispatch backend
const (
	MsgAuth           MessageType = "auth"
	MsgDriverOnline   MessageType = "driver.online"
	MsgDriverOffline  MessageType = "driver.offline"
	MsgDriverLocation MessageType = "driver.location"
	MsgRideAccept     MessageType = "ride.accept"
	MsgRideDecline    MessageType = "ride.decline"
	MsgRideArrived    MessageType = "ride.arrived"
	MsgRideStart      MessageType = "ride.start"
	MsgRideComplete   MessageType = "ride.complete"
	MsgRideCancel     MessageType = "ride.cancel"
	MsgSessionSync    MessageType = "session.sync"
)

// Decline reasons sent by the session itself
const (
	DeclineExpired             = "expired"
	DeclineDriverOffline       = "driver_offline"
	DeclineDriverUnavailable   = "driver_unavailable"
	DeclineOfferAlreadyPending = "offer_already_pending"
	DeclineConfirmationTimeout = "confirmation_timeout"
)
