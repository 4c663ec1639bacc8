package handler

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Health reports that the API is up. Load balancers and uptime monitors
// poll this endpoint.
func Health(c echo.Context) error {
	return ok(c, echo.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
