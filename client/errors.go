package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

var (
	ErrInvalidBaseURL = errors.New("client: invalid base URL")
	ErrUnknownRole    = errors.New("client: unknown role")
	ErrDecodeResponse = errors.New("client: failed to decode response")

	// ErrStopStream ends StreamNotifications cleanly when returned by its callback.
	ErrStopStream = errors.New("client: stop stream")
)

// Kind classifies a failed request.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindInvalidCredentials
	KindRateLimited
	KindUnauthenticated
	KindForbidden
	KindCSRFMismatch
	KindServerError
)

// Sentinels matched by errors.Is against an *Error of the same Kind.
var (
	ErrValidation         = errors.New("client: validation failed")
	ErrInvalidCredentials = errors.New("client: invalid credentials")
	ErrRateLimited        = errors.New("client: rate limited")
	ErrUnauthenticated    = errors.New("client: unauthenticated")
	ErrForbidden          = errors.New("client: forbidden")
	ErrCSRFMismatch       = errors.New("client: CSRF token mismatch")
	ErrServer             = errors.New("client: server error")
	ErrRequestFailed      = errors.New("client: request failed")
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindCSRFMismatch:
		return "csrf_mismatch"
	case KindServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindInvalidCredentials:
		return ErrInvalidCredentials
	case KindRateLimited:
		return ErrRateLimited
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindForbidden:
		return ErrForbidden
	case KindCSRFMismatch:
		return ErrCSRFMismatch
	case KindServerError:
		return ErrServer
	default:
		return ErrRequestFailed
	}
}

// Error is a failed API request. Status is zero when no response arrived.
type Error struct {
	Kind       Kind
	Status     int
	Code       string
	Message    string
	Fields     map[string][]string
	RetryAfter time.Duration

	cause error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("client: %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("client: %s (%d): %s", e.Kind, e.Status, e.Message)
}

// Unwrap exposes the Kind sentinel and the transport error, if any.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.cause}
}

// FieldError returns the first message for field, or "".
func (e *Error) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
	Details map[string]any      `json:"details"`
}

// codeInvalidCredentials marks a 422 caused by a credential mismatch.
const codeInvalidCredentials = "invalid_credentials"

const statusPageExpired = 419

func parseError(resp *http.Response) *Error {
	e := &Error{Status: resp.StatusCode}

	var body errorBody
	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)); err == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	e.Code, e.Message, e.Fields = body.Code, body.Message, body.Errors
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}

	switch s := resp.StatusCode; {
	case s == http.StatusUnprocessableEntity && body.Code == codeInvalidCredentials:
		e.Kind = KindInvalidCredentials
	case s == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
	case s == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = retryAfter(resp.Header.Get("Retry-After"), body.Details)
	case s == http.StatusUnauthorized:
		e.Kind = KindUnauthenticated
	case s == http.StatusForbidden:
		e.Kind = KindForbidden
	case s == statusPageExpired:
		e.Kind = KindCSRFMismatch
	case s >= http.StatusInternalServerError:
		e.Kind = KindServerError
	default:
		e.Kind = KindUnknown
	}
	return e
}

func retryAfter(header string, details map[string]any) time.Duration {
	if n, err := strconv.Atoi(header); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if v, ok := details["retry_after"].(float64); ok && v > 0 {
		return time.Duration(v) * time.Second
	}
	return 0
}
