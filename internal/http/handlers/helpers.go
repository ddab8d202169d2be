package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// orgFromContext returns the caller's organization or fails the request
func orgFromContext(c echo.Context) (uuid.UUID, error) {
	orgID, ok := c.Get("organization_id").(uuid.UUID)
	if !ok || orgID == uuid.Nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Organization context required")
	}
	return orgID, nil
}

// pagination reads limit/offset query params with sane bounds
func pagination(c echo.Context) (limit, offset int) {
	limit = 20
	offset = 0

	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// pathID parses the :id path parameter
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid ID format")
	}
	return id, nil
}
