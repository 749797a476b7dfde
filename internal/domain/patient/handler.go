package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edtriage/edtriage/pkg/pagination"
)

// Handler exposes the dashboard's patient endpoints. Every response carries
// the explicit status discriminator the dashboard client expects.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients", h.Intake)
	api.GET("/patients", h.List)
	api.GET("/patients/queue", h.Queue)
	api.GET("/patients/:id", h.Get)
	api.PUT("/patients/:id", h.Update)
	api.DELETE("/patients/:id/relocate", h.Relocate)
}

func errorJSON(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]string{"status": "error", "message": message})
}

func (h *Handler) Intake(c echo.Context) error {
	var req IntakeRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "malformed intake payload: "+err.Error())
	}

	rec, err := h.svc.Intake(c.Request().Context(), &req)
	if errors.Is(err, ErrInvalidInput) {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		// The patient was triaged but not recorded; the client must not be
		// told this succeeded.
		return errorJSON(c, http.StatusInternalServerError, "failed to store patient record")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Patient data received!",
		"patient": rec,
	})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	records, _, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to retrieve patients")
	}
	if records == nil {
		records = []*PatientRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) Queue(c echo.Context) error {
	pg := pagination.FromContext(c)
	records, err := h.svc.Queue(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to compute waiting queue")
	}
	if records == nil {
		records = []*PatientRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid patient id")
	}

	rec, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to retrieve patient")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"patient": rec,
	})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid patient id")
	}

	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "malformed update payload: "+err.Error())
	}

	rec, err := h.svc.Update(c.Request().Context(), id, &req)
	if errors.Is(err, ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "patient not found")
	}
	if errors.Is(err, ErrInvalidInput) {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to update patient")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Patient updated successfully",
		"patient": rec,
	})
}

func (h *Handler) Relocate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid patient id")
	}

	err = h.svc.Relocate(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to relocate patient")
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}
