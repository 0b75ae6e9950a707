package health

import (
	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/response"
)

// Liveness reports that the process is serving requests. It checks no dependencies.
func Liveness[C handler.Context](C) handler.Response {
	return response.JSON(map[string]string{"status": "alive"})
}
