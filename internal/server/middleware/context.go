package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/moxious/historynet/resolver/pkg/lookup"
)

// App holds the shared clients handlers need. The lookup service is
// stateless, so one instance serves every request.
type App struct {
	Lookup *lookup.Service
}

// AppContext wraps echo's context with the app handle.
type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(svc *lookup.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				Lookup: svc,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
