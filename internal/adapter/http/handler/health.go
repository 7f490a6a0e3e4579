package handler

import (
	"net/http"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
)

type Health struct {
	serviceName string
	snapshot    func() models.Snapshot
	log         logger.Logger
}

func NewHealth(serviceName string, snapshot func() models.Snapshot, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		snapshot:    snapshot,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Returns the health status of the service and of the backend connection
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /health [get]
func (a *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	snap := a.snapshot()
	status := "available"
	if !snap.Connected {
		status = "degraded"
	}

	response := envelope{
		"status":      status,
		"connected":   snap.Connected,
		"reconciling": snap.Reconciling,
		"system_info": map[string]string{
			"service-name": a.serviceName,
			"driver-id":    snap.DriverID,
		},
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		a.log.Error(ctx, "healthcheck", err)
		return
	}
}
