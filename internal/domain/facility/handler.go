package facility

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler serves the caller-location and nearby-ER endpoints. The places
// client may be nil when no maps credential is configured; the facility list
// is then always empty rather than the endpoint being absent.
type Handler struct {
	geoip  *GeoIP
	places *PlacesClient
	logger zerolog.Logger
}

func NewHandler(geoip *GeoIP, places *PlacesClient, logger zerolog.Logger) *Handler {
	return &Handler{geoip: geoip, places: places, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/location", h.Location)
	api.GET("/facilities", h.Facilities)
}

func (h *Handler) Location(c echo.Context) error {
	loc := h.geoip.Resolve(c.Request().Context(), c.RealIP())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "success",
		"location": loc,
	})
}

// Facilities is best-effort: lookup failures answer with an empty list so
// the dashboard map renders without pins instead of erroring. Optional
// radius (meters) and max query params narrow or widen the search;
// unparseable values fall back to the configured defaults.
func (h *Handler) Facilities(c echo.Context) error {
	rooms := []EmergencyRoom{}

	radiusM := queryInt(c, "radius", 0)
	maxResults := queryInt(c, "max", 5)

	if h.places != nil {
		loc := h.geoip.Resolve(c.Request().Context(), c.RealIP())
		lat, latErr := strconv.ParseFloat(loc.Latitude, 64)
		lon, lonErr := strconv.ParseFloat(loc.Longitude, 64)
		if latErr != nil || lonErr != nil {
			lat, lon = 0, 0
		}

		found, err := h.places.NearbyEmergencyRooms(c.Request().Context(), lat, lon, radiusM, maxResults)
		if err != nil {
			h.logger.Warn().Err(err).Msg("nearby emergency room lookup failed")
		} else {
			rooms = found
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "success",
		"facilities": rooms,
	})
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
