package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
)

// ListCalls lists platform call logs.
// GET /v1/calls?assistant_id=&limit=&created_after=&created_before=
func (h *Handler) ListCalls(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return badRequest(c, err.Error())
	}
	filter := vapi.ListFilter{
		Limit:         limit,
		AssistantID:   c.QueryParam("assistant_id"),
		PhoneNumberID: c.QueryParam("phone_number_id"),
	}
	for name, dst := range map[string]*time.Time{
		"created_after":  &filter.CreatedAtGt,
		"created_before": &filter.CreatedAtLt,
	} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, name+" must be an RFC3339 timestamp")
		}
		*dst = ts
	}

	calls, err := h.service.ListCalls(c.Request().Context(), filter)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"calls": calls,
	})
}

// GetCall returns one call log.
// GET /v1/calls/:id
func (h *Handler) GetCall(c echo.Context) error {
	call, err := h.service.GetCall(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, call)
}

// ListPhoneNumbers lists phone numbers.
// GET /v1/phone-numbers
func (h *Handler) ListPhoneNumbers(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return badRequest(c, err.Error())
	}
	numbers, err := h.service.ListPhoneNumbers(c.Request().Context(), limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"phone_numbers": numbers,
	})
}

// CreatePhoneNumber provisions a phone number.
// POST /v1/phone-numbers
func (h *Handler) CreatePhoneNumber(c echo.Context) error {
	payload := map[string]interface{}{}
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.service.CreatePhoneNumber(c.Request().Context(), payload)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// GetPhoneNumber returns one phone number.
// GET /v1/phone-numbers/:id
func (h *Handler) GetPhoneNumber(c echo.Context) error {
	p, err := h.service.GetPhoneNumber(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// UpdatePhoneNumber updates a phone number.
// PATCH /v1/phone-numbers/:id
func (h *Handler) UpdatePhoneNumber(c echo.Context) error {
	payload := map[string]interface{}{}
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(payload) == 0 {
		return badRequest(c, "nothing to update")
	}
	p, err := h.service.UpdatePhoneNumber(c.Request().Context(), c.Param("id"), payload)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// DeletePhoneNumber releases a phone number.
// DELETE /v1/phone-numbers/:id
func (h *Handler) DeletePhoneNumber(c echo.Context) error {
	if err := h.service.DeletePhoneNumber(c.Request().Context(), c.Param("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}

// ListSquads lists squads.
// GET /v1/squads
func (h *Handler) ListSquads(c echo.Context) error {
	squads, err := h.service.ListSquads(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"squads": squads,
	})
}

// ListTools lists tools.
// GET /v1/tools
func (h *Handler) ListTools(c echo.Context) error {
	tools, err := h.service.ListTools(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tools": tools,
	})
}
