package ws

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
)

// driverClaims are looked up in order.
var driverClaims = []string{"driver_id", "user_id", "sub"}

// DriverIDFromToken reads the driver id out of an access token. The signature
// is checked by the backend, the client only needs the identity and expiry.
func DriverIDFromToken(token string, now time.Time) (string, error) {
	const op = "ws.DriverIDFromToken"

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if exp != nil && !now.Before(exp.Time) {
		return "", fmt.Errorf("%s: %w", op, types.ErrTokenExpired)
	}

	for _, claim := range driverClaims {
		if id, _ := mc[claim].(string); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%s: %w", op, types.ErrNoDriverID)
}
