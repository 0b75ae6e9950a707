package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/logger"
	"github.com/dmitrymomot/starter/core/response"
)

// CheckTimeout bounds a single dependency check.
const CheckTimeout = 3 * time.Second

// Check is a named dependency probe.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// Readiness runs every check and answers 200 when all pass, 503 otherwise.
// The body lists the result per check.
func Readiness[C handler.Context](log *slog.Logger, checks ...Check) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		results := make(map[string]string, len(checks))
		healthy := true

		for _, c := range checks {
			checkCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
			err := c.Fn(checkCtx)
			cancel()

			if err != nil {
				healthy = false
				results[c.Name] = "unavailable"
				log.ErrorContext(ctx, "readiness check failed",
					logger.Component(c.Name),
					logger.Error(err),
				)
				continue
			}
			results[c.Name] = "ok"
		}

		if !healthy {
			return response.Error(response.ErrServiceUnavailable.WithDetails(map[string]any{
				"checks": results,
			}))
		}
		return response.JSON(map[string]any{"status": "ready", "checks": results})
	}
}
