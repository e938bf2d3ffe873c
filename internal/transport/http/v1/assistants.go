package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/assistdesk/internal/diff"
	"github.com/xiaot623/assistdesk/internal/domain"
)

// CloneRequest is the body of a clone request.
type CloneRequest struct {
	Name string `json:"name"`
}

// ListAssistants lists assistants from the cache.
// GET /v1/assistants?refresh=true
func (h *Handler) ListAssistants(c echo.Context) error {
	refresh := c.QueryParam("refresh") == "true" || c.QueryParam("refresh") == "1"
	assistants, err := h.service.ListAssistants(c.Request().Context(), refresh)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"assistants": assistants,
	})
}

// GetAssistant loads an assistant into the session and returns it with its
// form values.
// GET /v1/assistants/:id
func (h *Handler) GetAssistant(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	a, err := h.service.LoadAssistant(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"assistant": a,
		"form":      diff.FormFromConfig(*a),
	})
}

// CreateAssistant creates an assistant.
// POST /v1/assistants
func (h *Handler) CreateAssistant(c echo.Context) error {
	var cfg domain.AssistantConfig
	if err := c.Bind(&cfg); err != nil {
		return badRequest(c, "invalid request body")
	}
	created, err := h.service.CreateAssistant(c.Request().Context(), cfg)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateAssistant saves the changed form fields.
// PATCH /v1/assistants/:id
func (h *Handler) UpdateAssistant(c echo.Context) error {
	var form diff.AssistantForm
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid request body")
	}
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	res, err := h.service.UpdateAssistant(c.Request().Context(), sess, c.Param("id"), form)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// PreviewAssistant returns the payload a save would send.
// POST /v1/assistants/:id/preview
func (h *Handler) PreviewAssistant(c echo.Context) error {
	var form diff.AssistantForm
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid request body")
	}
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	payload, err := h.service.PreviewUpdate(c.Request().Context(), sess, c.Param("id"), form)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"no_op":   payload.IsEmpty(),
		"fields":  payload.Fields(),
		"payload": payload,
	})
}

// CloneAssistant copies an assistant.
// POST /v1/assistants/:id/clone
func (h *Handler) CloneAssistant(c echo.Context) error {
	var req CloneRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	created, err := h.service.CloneAssistant(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// DeleteAssistant deletes an assistant.
// DELETE /v1/assistants/:id
func (h *Handler) DeleteAssistant(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if err := h.service.DeleteAssistant(c.Request().Context(), sess, c.Param("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}
