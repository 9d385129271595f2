package httpx

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Context aliases echo.Context so callers can stay within httpx imports.
type Context = echo.Context

type HandlerFunc = echo.HandlerFunc

type MiddlewareFunc = echo.MiddlewareFunc

// App wraps the echo instance routes are registered on.
type App struct{ e *echo.Echo }

func newApp() *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return &App{e: e}
}

func (a *App) Use(mw ...MiddlewareFunc) { a.e.Use(mw...) }

// Group creates a route group under prefix with its own middleware stack.
func (a *App) Group(prefix string, mw ...MiddlewareFunc) *Router {
	return &Router{g: a.e.Group(prefix, mw...)}
}

func (a *App) GET(path string, h HandlerFunc, mw ...MiddlewareFunc) {
	a.e.GET(path, h, mw...)
}

func (a *App) POST(path string, h HandlerFunc, mw ...MiddlewareFunc) {
	a.e.POST(path, h, mw...)
}

func (a *App) PUT(path string, h HandlerFunc, mw ...MiddlewareFunc) {
	a.e.PUT(path, h, mw...)
}

func (a *App) DELETE(path string, h HandlerFunc, mw ...MiddlewareFunc) {
	a.e.DELETE(path, h, mw...)
}

// HTTPError constructs an echo HTTP error without importing echo in callers.
func HTTPError(code int, message any) error { return echo.NewHTTPError(code, message) }

// WrapHandler adapts a net/http handler such as promhttp.
var WrapHandler = echo.WrapHandler

var DefaultCORSConfig = middleware.DefaultCORSConfig
