package types

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrDriverBusy        = errors.New("driver is on a ride")
	ErrOfferNotFound     = errors.New("offer not found")
	ErrNoActiveRide      = errors.New("no active ride")
	ErrDisconnected      = errors.New("transport is disconnected")
	ErrReconciling       = errors.New("session is reconciling state with server")
	ErrSessionClosed     = errors.New("session is closed")

	ErrUnknownMessage = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid message payload")
	ErrTokenExpired   = errors.New("access token expired")
	ErrNoDriverID     = errors.New("driver id is missing in token claims")
)
