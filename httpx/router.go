package httpx

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// Route is a single HTTP route definition.
type Route struct {
	Method     string
	Path       string
	Handler    HandlerFunc
	Middleware []MiddlewareFunc
}

// Router wraps an echo group with chainable verb helpers.
type Router struct {
	g *echo.Group
}

// Add registers routes on the router, skipping incomplete definitions.
func (r *Router) Add(routes ...Route) *Router {
	for _, rt := range routes {
		r.add(strings.ToUpper(rt.Method), rt.Path, rt.Handler, rt.Middleware...)
	}
	return r
}

func (r *Router) GET(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.add(echo.GET, path, h, mw...)
	return r
}

func (r *Router) POST(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.add(echo.POST, path, h, mw...)
	return r
}

func (r *Router) PUT(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.add(echo.PUT, path, h, mw...)
	return r
}

func (r *Router) DELETE(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.add(echo.DELETE, path, h, mw...)
	return r
}

func (r *Router) add(method, path string, h HandlerFunc, mw ...MiddlewareFunc) {
	if r == nil || r.g == nil || h == nil || path == "" || method == "" {
		return
	}
	r.g.Add(method, path, h, mw...)
}
