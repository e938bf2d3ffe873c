package vapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xiaot623/assistdesk/internal/config"
)

// Kind classifies a platform failure.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindHTTP          Kind = "http"
	KindTransient     Kind = "transient"
)

// Error is returned by every platform operation that fails.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("vapi: ")
	b.WriteString(e.Op)
	switch e.Kind {
	case KindNotFound:
		b.WriteString(": not found")
	case KindValidation:
		b.WriteString(": rejected")
	case KindConfiguration:
		b.WriteString(": configuration error")
	case KindTransient:
		b.WriteString(": network error")
	default:
		b.WriteString(": request failed")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " [%d]", e.StatusCode)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound reports whether err is a missing remote resource.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsValidation reports whether the platform rejected a payload.
func IsValidation(err error) bool { return kindOf(err) == KindValidation }

// IsTransient reports whether err is a network-level failure.
func IsTransient(err error) bool { return kindOf(err) == KindTransient }

// IsConfiguration reports whether err is a missing or rejected credential.
func IsConfiguration(err error) bool {
	if kindOf(err) == KindConfiguration {
		return true
	}
	var cfgErr *config.ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsHTTP reports whether err is any other non-2xx response.
func IsHTTP(err error) bool { return kindOf(err) == KindHTTP }

// Outcome is the metrics label for err.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := kindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

func statusError(op string, statusCode int, body []byte) *Error {
	e := &Error{Op: op, StatusCode: statusCode, Body: strings.TrimSpace(string(body))}
	switch {
	case statusCode == http.StatusNotFound:
		e.Kind = KindNotFound
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Kind = KindConfiguration
	default:
		e.Kind = KindHTTP
	}
	return e
}

// transportError wraps a failure from the HTTP round trip: timeouts,
// refused connections and DNS failures all land here.
func transportError(op string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}
