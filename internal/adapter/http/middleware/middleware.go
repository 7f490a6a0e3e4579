package middleware

import (
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
)

type Middleware struct {
	controlToken string
	log          logger.Logger
}

// NewMiddleware builds the control API middleware. An empty controlToken
// leaves the API open, which is only sensible on a loopback address.
func NewMiddleware(controlToken string, log logger.Logger) *Middleware {
	return &Middleware{
		controlToken: controlToken,
		log:          log,
	}
}
