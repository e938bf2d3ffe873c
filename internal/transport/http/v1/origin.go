package v1

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// OriginPolicy decides which browser origins may drive the API. Requests
// without an Origin header come from non-browser clients and are allowed.
// Loopback origins are always allowed; anything else must be listed.
type OriginPolicy struct {
	allowed map[string]bool
}

// NewOriginPolicy builds a policy from explicit origins such as
// "https://desk.example.com".
func NewOriginPolicy(allowed []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]bool, len(allowed))}
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			p.allowed[strings.ToLower(o)] = true
		}
	}
	return p
}

// Allow reports whether origin may call the API.
func (p *OriginPolicy) Allow(origin string) bool {
	if origin == "" {
		return true
	}
	if p != nil && p.allowed[strings.ToLower(strings.TrimRight(origin, "/"))] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return isLoopbackHost(u.Hostname())
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Middleware rejects requests whose Origin the policy does not allow,
// including simple requests that never trigger a CORS preflight.
func (p *OriginPolicy) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !p.Allow(c.Request().Header.Get(echo.HeaderOrigin)) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "origin not allowed"})
			}
			return next(c)
		}
	}
}

// CORSOrigin adapts Allow to echo's CORS AllowOriginFunc.
func (p *OriginPolicy) CORSOrigin(origin string) (bool, error) {
	return p.Allow(origin), nil
}
