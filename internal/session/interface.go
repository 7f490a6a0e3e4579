package session

import (
	"context"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
)

type (
	// Transport is the duplex connection to the dispatch backend. Send must be
	// safe for concurrent use. Inbound also carries the synthetic
	// transport.disconnected / transport.connected messages.
	Transport interface {
		Send(ctx context.Context, msgType types.MessageType, payload any) error
		Inbound() <-chan models.Message
	}

	// LocationProvider returns the latest fix, or false while none is available.
	LocationProvider interface {
		Current() (models.LocationSample, bool)
	}
)
