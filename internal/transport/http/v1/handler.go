// Package v1 provides the dashboard API handlers.
package v1

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
	"github.com/xiaot623/assistdesk/internal/callsession"
	"github.com/xiaot623/assistdesk/internal/config"
	"github.com/xiaot623/assistdesk/internal/hub"
	"github.com/xiaot623/assistdesk/internal/logger"
	"github.com/xiaot623/assistdesk/internal/policy"
	"github.com/xiaot623/assistdesk/internal/service"
)

// Version is reported by /health.
const Version = "0.1.0"

// HeaderSessionID selects the dashboard session a request acts on. Requests
// without it share one default session.
const HeaderSessionID = "X-Session-ID"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	hub     *hub.Hub
	log     *logger.Logger
	origins *OriginPolicy

	mu             sync.Mutex
	defaultSession *service.Session
}

// NewHandler creates a new handler. h may be nil when streaming is not served.
func NewHandler(svc *service.Service, h *hub.Hub, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		service: svc,
		hub:     h,
		log:     log,
		origins: NewOriginPolicy(nil),
	}
}

// SetOriginPolicy replaces the loopback-only default used for websocket
// upgrades.
func (h *Handler) SetOriginPolicy(p *OriginPolicy) {
	if p != nil {
		h.origins = p
	}
}

// RegisterRoutes registers the v1 routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Agent catalog
	e.GET("/v1/agents", h.ListAgents)
	e.GET("/v1/agents/verify", h.VerifyAgents)

	// Assistants
	e.GET("/v1/assistants", h.ListAssistants)
	e.POST("/v1/assistants", h.CreateAssistant)
	e.GET("/v1/assistants/:id", h.GetAssistant)
	e.PATCH("/v1/assistants/:id", h.UpdateAssistant)
	e.POST("/v1/assistants/:id/preview", h.PreviewAssistant)
	e.POST("/v1/assistants/:id/clone", h.CloneAssistant)
	e.DELETE("/v1/assistants/:id", h.DeleteAssistant)

	// Platform resources
	e.GET("/v1/calls", h.ListCalls)
	e.GET("/v1/calls/:id", h.GetCall)
	e.GET("/v1/phone-numbers", h.ListPhoneNumbers)
	e.POST("/v1/phone-numbers", h.CreatePhoneNumber)
	e.GET("/v1/phone-numbers/:id", h.GetPhoneNumber)
	e.PATCH("/v1/phone-numbers/:id", h.UpdatePhoneNumber)
	e.DELETE("/v1/phone-numbers/:id", h.DeletePhoneNumber)
	e.GET("/v1/squads", h.ListSquads)
	e.GET("/v1/tools", h.ListTools)

	// Dashboard session and call process
	e.POST("/v1/session", h.CreateSession)
	e.GET("/v1/session", h.GetSession)
	e.DELETE("/v1/session", h.CloseSession)
	e.POST("/v1/session/start", h.StartCall)
	e.POST("/v1/session/stop", h.StopCall)
	e.GET("/v1/session/history", h.CallHistory)
	e.GET("/v1/session/history.csv", h.ExportCallHistory)
	e.GET("/v1/session/stream", h.Stream)
}

// session resolves the request's session from the header or the
// session_id query parameter, which browsers use for websockets.
func (h *Handler) session(c echo.Context) (*service.Session, error) {
	id := c.Request().Header.Get(HeaderSessionID)
	if id == "" {
		id = c.QueryParam("session_id")
	}
	if id != "" {
		return h.service.Session(id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.defaultSession == nil {
		h.defaultSession = h.service.NewSession()
	}
	return h.defaultSession, nil
}

// writeError maps service and platform errors to HTTP responses.
func (h *Handler) writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	body := map[string]interface{}{"error": err.Error()}

	var (
		blocked   *policy.BlockedError
		launchErr *callsession.ProcessLaunchError
		cfgErr    *config.ConfigurationError
		remoteErr *vapi.Error
	)
	switch {
	case errors.As(err, &blocked):
		status = http.StatusForbidden
		body["reason"] = blocked.Reason
	case errors.Is(err, callsession.ErrSessionActive):
		status = http.StatusConflict
	case errors.As(err, &launchErr):
		status = http.StatusInternalServerError
	case errors.Is(err, service.ErrAgentNotFound), errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNoAssistantLoaded):
		status = http.StatusConflict
	case errors.As(err, &cfgErr):
		status = http.StatusUnauthorized
	case errors.As(err, &remoteErr):
		switch remoteErr.Kind {
		case vapi.KindNotFound:
			status = http.StatusNotFound
		case vapi.KindValidation:
			status = http.StatusUnprocessableEntity
			body["detail"] = remoteErr.Body
		case vapi.KindConfiguration:
			status = http.StatusUnauthorized
		case vapi.KindTransient:
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", logrus.Fields{"path": c.Path(), "error": err.Error()})
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}
