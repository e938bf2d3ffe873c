package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListAgents lists the agent catalog with its findings.
// GET /v1/agents
func (h *Handler) ListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.ListAgents())
}

// VerifyAgents checks each catalog id against the platform.
// GET /v1/agents/verify
func (h *Handler) VerifyAgents(c echo.Context) error {
	results, err := h.service.VerifyAgents(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"results": results,
	})
}
