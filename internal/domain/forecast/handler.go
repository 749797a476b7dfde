package forecast

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edtriage/edtriage/internal/domain/facility"
)

// CallerLocator resolves the requesting IP to an approximate location. The
// forecast only needs its timezone, so the horizon starts on the caller's
// calendar day rather than UTC's.
type CallerLocator interface {
	Resolve(ctx context.Context, ip string) *facility.Location
}

type Handler struct {
	svc     *Service
	locator CallerLocator
}

// NewHandler builds the forecast handler. A nil locator anchors every
// horizon in UTC.
func NewHandler(svc *Service, locator CallerLocator) *Handler {
	return &Handler{svc: svc, locator: locator}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/predict/busyness", h.Predict)
}

func (h *Handler) Predict(c echo.Context) error {
	loc, tzName := h.callerTimezone(c)

	predictions, err := h.svc.Forecast(c.Request().Context(), c.QueryParam("date"), loc)
	if errors.Is(err, ErrBadDate) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "failed to generate predictions",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "success",
		"predictions": predictions,
		"timezone":    tzName,
	})
}

// callerTimezone falls back to UTC whenever the lookup is unavailable or the
// reported zone name is not loadable.
func (h *Handler) callerTimezone(c echo.Context) (*time.Location, string) {
	if h.locator == nil {
		return time.UTC, "UTC"
	}
	tz := h.locator.Resolve(c.Request().Context(), c.RealIP()).Timezone
	loc, err := time.LoadLocation(tz)
	if tz == "" || err != nil {
		return time.UTC, "UTC"
	}
	return loc, tz
}
