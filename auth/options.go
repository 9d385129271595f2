package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type TokenExtractor func(*http.Request) (string, error)

type MiddlewareSkipper func(*http.Request) bool

type MiddlewareErrorHandler func(http.ResponseWriter, *http.Request, error)

type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	verifier     TokenVerifier
	extractor    TokenExtractor
	skipper      MiddlewareSkipper
	errorHandler MiddlewareErrorHandler
}

func newMiddlewareConfig(verifier TokenVerifier, opts ...MiddlewareOption) (middlewareConfig, error) {
	if verifier == nil {
		return middlewareConfig{}, errors.New("auth: middleware requires a token verifier")
	}
	cfg := middlewareConfig{
		verifier:     verifier,
		extractor:    BearerTokenExtractor(),
		skipper:      defaultSkipper,
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg, nil
}

func WithTokenExtractor(extractor TokenExtractor) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if extractor != nil {
			cfg.extractor = extractor
		}
	}
}

func WithSkipper(skipper MiddlewareSkipper) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if skipper != nil {
			cfg.skipper = skipper
		}
	}
}

func WithErrorHandler(handler MiddlewareErrorHandler) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if handler != nil {
			cfg.errorHandler = handler
		}
	}
}

// BearerTokenExtractor reads the token from "Authorization: Bearer <token>".
func BearerTokenExtractor() TokenExtractor {
	return func(r *http.Request) (string, error) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return "", ErrMissingToken
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", ErrInvalidToken
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}

// HeaderTokenExtractor reads the raw token from the named header.
func HeaderTokenExtractor(name string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		token := strings.TrimSpace(r.Header.Get(name))
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}

func defaultSkipper(*http.Request) bool { return false }

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusUnauthorized
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, ErrNoAdminHash):
		status = http.StatusForbidden
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
