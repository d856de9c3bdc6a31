package http

import "github.com/labstack/echo/v4"

// Handler mounts one group of API routes.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// Handlers mounts each handler in order. Nil entries are components that are not
// configured and are skipped.
type Handlers []Handler

func (hs Handlers) RegisterRoutes(e *echo.Echo) {
	for _, h := range hs {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
