package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
)

// Auth requires "Authorization: Bearer <control token>" on every route except
// health, metrics and swagger.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.controlToken == "" || isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.controlToken)) != 1 {
			m.log.Warn(wrap.WithAction(r.Context(), "control_auth"), "invalid control token", "path", r.URL.Path)
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isPublic(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/swagger/")
}

// --- header parser ---
func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
