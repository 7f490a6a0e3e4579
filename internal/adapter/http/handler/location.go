package handler

import (
	"net/http"

	"github.com/Temutjin2k/ride-hail-driver/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-driver/pkg/validator"
)

// LocationUpdater accepts fixes pushed by the driver's device.
type LocationUpdater interface {
	Update(sample models.LocationSample) error
}

type Location struct {
	updater LocationUpdater // nil unless the location mode is device
	l       logger.Logger
}

func NewLocation(updater LocationUpdater, l logger.Logger) *Location {
	return &Location{
		updater: updater,
		l:       l,
	}
}

// UpdateLocation godoc
// @Summary      Push a device location fix
// @Description  Only available when the session runs with location mode "device"
// @Tags         Location
// @Accept       json
// @Produce      json
// @Param        request  body      dto.UpdateLocationReq  true  "location fix"
// @Success      202      {object}  map[string]string
// @Failure      400      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Failure      422      {object}  map[string]string
// @Security     BearerAuth
// @Router       /location [put]
func (h *Location) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_update_location")

	if h.updater == nil {
		errorResponse(w, http.StatusConflict, "location is not fed by the device in this mode")
		return
	}

	var req dto.UpdateLocationReq
	if err := readJSON(w, r, &req, false); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	if err := h.updater.Update(req.ToModel()); err != nil {
		h.l.Warn(ctx, "location update rejected", "error", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusAccepted, envelope{"status": "accepted"}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
	}
}
