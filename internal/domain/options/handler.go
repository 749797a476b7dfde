package options

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/options", h.ListCategories)
	api.GET("/options/:category", h.GetCategory)
}

func (h *Handler) ListCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "success",
		"categories": Categories(),
	})
}

func (h *Handler) GetCategory(c echo.Context) error {
	category := c.Param("category")
	list, ok := Lookup(category)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": fmt.Sprintf("unknown option category %q, expected one of: %s", category, strings.Join(Categories(), ", ")),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"options": list,
	})
}
