package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionTransportConnected    = "transport_connected"
	ActionTransportDisconnected = "transport_disconnected"
	ActionTransportReconnect    = "transport_reconnect"

	ActionGoOnline        = "go_online"
	ActionGoOffline       = "go_offline"
	ActionOfferReceived   = "offer_received"
	ActionOfferAccept     = "offer_accept"
	ActionOfferDecline    = "offer_decline"
	ActionOfferExpired    = "offer_expired"
	ActionRideTransition  = "ride_transition"
	ActionRideCancelled   = "ride_cancelled"
	ActionTelemetryTick   = "telemetry_tick"
	ActionReconcile       = "session_reconcile"
	ActionInboundMessage  = "inbound_message"
	ActionSessionShutdown = "session_shutdown"
)
