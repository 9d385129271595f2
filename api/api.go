// Package api exposes a storage partition and the search-result cache over
// HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/adeilh/marketcache/auth"
	"github.com/adeilh/marketcache/cache"
	"github.com/adeilh/marketcache/httpx"
	"github.com/adeilh/marketcache/storage"
)

// MaxPayloadBytes bounds request bodies accepted by PUT /v1/cache.
const MaxPayloadBytes = 4 << 20

type Handler struct {
	store    storage.Storage
	cache    *cache.Cache
	admin    *auth.Middleware
	gatherer prometheus.Gatherer
	log      zerolog.Logger
}

type Option func(*Handler)

// WithAdmin protects administrative routes with mw. Without it those routes
// always answer 401.
func WithAdmin(mw *auth.Middleware) Option {
	return func(h *Handler) { h.admin = mw }
}

// WithGatherer serves g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) { h.gatherer = g }
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.log = l.With().Str("component", "api").Logger() }
}

func New(store storage.Storage, c *cache.Cache, opts ...Option) *Handler {
	h := &Handler{store: store, cache: c, log: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register mounts every route on a. It matches httpx.RouteRegistrar.
func (h *Handler) Register(a *httpx.App) {
	a.GET("/healthz", h.health)
	if h.gatherer != nil {
		a.GET("/metrics", httpx.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := a.Group("/v1")
	v1.GET("/storage/keys", h.listKeys).
		GET("/storage/item", h.getItem).
		PUT("/storage/item", h.setItem).
		DELETE("/storage/item", h.removeItem).
		GET("/cache", h.getCache).
		PUT("/cache", h.saveCache).
		POST("/cache/sweep", h.sweep, httpx.AuthMiddleware(h.admin))
}

type keysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

type itemResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type itemRequest struct {
	Value *string `json:"value"`
}

type sweepResponse struct {
	Removed int `json:"removed"`
}

func (h *Handler) health(c httpx.Context) error {
	n, err := h.store.Len(c.Request().Context())
	if err != nil {
		return h.storageError(err)
	}
	return c.JSON(httpx.StatusOK, map[string]any{"status": "ok", "items": n})
}

func (h *Handler) listKeys(c httpx.Context) error {
	keys, err := h.store.Keys(c.Request().Context())
	if err != nil {
		return h.storageError(err)
	}
	if keys == nil {
		keys = []string{}
	}
	sort.Strings(keys)
	return c.JSON(httpx.StatusOK, keysResponse{Keys: keys, Count: len(keys)})
}

func (h *Handler) getItem(c httpx.Context) error {
	key, err := requireKey(c)
	if err != nil {
		return err
	}
	value, err := h.store.GetItem(c.Request().Context(), key)
	if err != nil {
		return h.storageError(err)
	}
	return c.JSON(httpx.StatusOK, itemResponse{Key: key, Value: value})
}

func (h *Handler) setItem(c httpx.Context) error {
	key, err := requireKey(c)
	if err != nil {
		return err
	}
	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid body")
	}
	if req.Value == nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "value is required")
	}
	if err := h.store.SetItem(c.Request().Context(), key, *req.Value); err != nil {
		return h.storageError(err)
	}
	return c.NoContent(httpx.StatusNoContent)
}

func (h *Handler) removeItem(c httpx.Context) error {
	key, err := requireKey(c)
	if err != nil {
		return err
	}
	if err := h.store.RemoveItem(c.Request().Context(), key); err != nil {
		return h.storageError(err)
	}
	return c.NoContent(httpx.StatusNoContent)
}

func (h *Handler) getCache(c httpx.Context) error {
	key, err := requireKey(c)
	if err != nil {
		return err
	}
	payload, ok := h.cache.Get(c.Request().Context(), key)
	if !ok {
		return httpx.HTTPError(httpx.StatusNotFound, "not cached")
	}
	return c.JSONBlob(httpx.StatusOK, payload)
}

// saveCache answers 204 for any valid JSON body; storage failures are logged
// by the cache and never surface here.
func (h *Handler) saveCache(c httpx.Context) error {
	key, err := requireKey(c)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxPayloadBytes+1))
	if err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "unreadable body")
	}
	if len(body) > MaxPayloadBytes {
		return httpx.HTTPError(httpx.StatusBadRequest, "payload too large")
	}
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return httpx.HTTPError(httpx.StatusBadRequest, "payload must be JSON")
	}
	h.cache.Save(c.Request().Context(), key, json.RawMessage(body))
	return c.NoContent(httpx.StatusNoContent)
}

func (h *Handler) sweep(c httpx.Context) error {
	removed := h.cache.Sweep(c.Request().Context())
	h.log.Info().Int("removed", removed).Msg("cache cleared by admin")
	return c.JSON(httpx.StatusOK, sweepResponse{Removed: removed})
}

func requireKey(c httpx.Context) (string, error) {
	key := c.QueryParam("key")
	if key == "" {
		return "", httpx.HTTPError(httpx.StatusBadRequest, "key is required")
	}
	return key, nil
}

func (h *Handler) storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return httpx.HTTPError(httpx.StatusNotFound, "key not found")
	case errors.Is(err, storage.ErrQuotaExceeded):
		return httpx.HTTPError(httpx.StatusInsufficientStorage, "storage quota exceeded")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return httpx.HTTPError(httpx.StatusServiceUnavailable, "request cancelled")
	default:
		h.log.Error().Err(err).Msg("storage request failed")
		return httpx.HTTPError(httpx.StatusServiceUnavailable, "storage unavailable")
	}
}
