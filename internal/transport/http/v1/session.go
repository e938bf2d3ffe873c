package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// StartCallRequest is the body of a call start request.
type StartCallRequest struct {
	Agent     string            `json:"agent"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

// CreateSession opens a new dashboard session.
// POST /v1/session
func (h *Handler) CreateSession(c echo.Context) error {
	sess := h.service.NewSession()
	c.Response().Header().Set(HeaderSessionID, sess.ID)
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"session_id": sess.ID,
		"created_at": sess.CreatedAt.UnixMilli(),
	})
}

// GetSession returns the session's loaded assistant and call state.
// GET /v1/session
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	resp := map[string]interface{}{
		"session_id": sess.ID,
		"call":       h.service.CallStatus(sess),
		"assistant":  nil,
	}
	if a := sess.Assistant(); a != nil {
		resp["assistant"] = a
	}
	return c.JSON(http.StatusOK, resp)
}

// CloseSession stops the session's call and forgets the session.
// DELETE /v1/session
func (h *Handler) CloseSession(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if err := sess.Close(c.Request().Context()); err != nil {
		return h.writeError(c, err)
	}
	h.mu.Lock()
	if h.defaultSession == sess {
		h.defaultSession = nil
	}
	h.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}

// StartCall launches the call process for an agent.
// POST /v1/session/start
func (h *Handler) StartCall(c echo.Context) error {
	var req StartCallRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Agent) == "" {
		return badRequest(c, "agent is required")
	}
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	rec, err := h.service.StartCall(c.Request().Context(), sess, req.Agent, req.Overrides)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// StopCall stops the session's call. Stopping an idle session succeeds with
// a null record.
// POST /v1/session/stop
func (h *Handler) StopCall(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	rec, err := h.service.StopCall(c.Request().Context(), sess)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"record": rec,
	})
}

// CallHistory lists call records, newest first.
// GET /v1/session/history?limit=
func (h *Handler) CallHistory(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return badRequest(c, err.Error())
	}
	records, err := h.service.CallHistory(c.Request().Context(), limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"records": records,
	})
}

// ExportCallHistory downloads the history as CSV.
// GET /v1/session/history.csv
func (h *Handler) ExportCallHistory(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="call_history.csv"`)
	res.WriteHeader(http.StatusOK)
	return h.service.ExportCallHistory(c.Request().Context(), res)
}
