package auth

import (
	"context"
	"net/http"
)

type Middleware struct {
	verifier     TokenVerifier
	extractor    TokenExtractor
	skipper      MiddlewareSkipper
	errorHandler MiddlewareErrorHandler
}

type adminContextKey struct{}

func NewMiddleware(verifier TokenVerifier, opts ...MiddlewareOption) (*Middleware, error) {
	cfg, err := newMiddlewareConfig(verifier, opts...)
	if err != nil {
		return nil, err
	}
	return &Middleware{
		verifier:     cfg.verifier,
		extractor:    cfg.extractor,
		skipper:      cfg.skipper,
		errorHandler: cfg.errorHandler,
	}, nil
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	if m == nil {
		panic("auth: middleware is nil")
	}
	if next == nil {
		next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := m.extractor(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		if err := m.verifier.Verify(r.Context(), raw); err != nil {
			m.errorHandler(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), adminContextKey{}, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IsAdmin reports whether the request context passed the middleware.
func IsAdmin(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	ok, _ := ctx.Value(adminContextKey{}).(bool)
	return ok
}
