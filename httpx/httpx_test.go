package httpx

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/adeilh/marketcache/auth"
)

func TestServerAndClientRoundTrip(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/ping", func(c Context) error {
			return c.JSON(StatusOK, map[string]string{"message": "pong"})
		})
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))

	var body struct {
		Message string `json:"message"`
	}
	resp, err := client.Get(context.Background(), "/ping", &body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode() != StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode())
	}
	if body.Message != "pong" {
		t.Fatalf("unexpected body: %#v", body)
	}
}

func TestErrorHandlerReturnsStatusError(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/fail", func(c Context) error {
			return HTTPError(StatusInsufficientStorage, "quota exceeded")
		})
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))

	resp, err := client.Get(context.Background(), "/fail", nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != StatusInsufficientStorage {
		t.Fatalf("unexpected code: %d", se.Code)
	}
	if !strings.Contains(se.Body, "quota exceeded") {
		t.Fatalf("unexpected body: %q", se.Body)
	}
	if resp == nil || resp.StatusCode() != StatusInsufficientStorage {
		t.Fatalf("expected response for error path")
	}
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/boom", func(c Context) error { return errors.New("db password leaked") })
	})

	res := httptest.NewRecorder()
	server.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if res.Code != StatusInternalError {
		t.Fatalf("unexpected status: %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "leaked") {
		t.Fatalf("internal error exposed: %s", res.Body.String())
	}
}

func TestAuthMiddlewareBridge(t *testing.T) {
	hash, err := auth.HashToken("value", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashToken() error = %v", err)
	}
	mw, err := auth.NewMiddleware(auth.NewAdminGuard(hash))
	if err != nil {
		t.Fatalf("unexpected err creating middleware: %v", err)
	}

	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.POST("/secure", func(c Context) error {
			if !auth.IsAdmin(c.Request().Context()) {
				return HTTPError(StatusUnauthorized, "not admin")
			}
			return c.JSON(StatusOK, map[string]string{"ok": "yes"})
		}, AuthMiddleware(mw))
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))

	resp, err := client.Post(context.Background(), "/secure", nil, nil, WithBearer("value"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode() != StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode())
	}

	_, err = client.Post(context.Background(), "/secure", nil, nil, WithBearer("other"))
	var se *StatusError
	if !errors.As(err, &se) || se.Code != StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuthMiddlewarePropagatesHandlerError(t *testing.T) {
	hash, err := auth.HashToken("value", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashToken() error = %v", err)
	}
	mw, err := auth.NewMiddleware(auth.NewAdminGuard(hash))
	if err != nil {
		t.Fatalf("unexpected err creating middleware: %v", err)
	}

	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.POST("/secure", func(c Context) error {
			return HTTPError(StatusServiceUnavailable, "storage down")
		}, AuthMiddleware(mw))
	})

	req := httptest.NewRequest(http.MethodPost, "/secure", nil)
	req.Header.Set("Authorization", "Bearer value")
	res := httptest.NewRecorder()
	server.Handler().ServeHTTP(res, req)

	if res.Code != StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", res.Code)
	}
}

func TestAuthMiddlewareMissing(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/secure", func(c Context) error { return c.NoContent(StatusOK) }, AuthMiddleware(nil))
	})

	res := httptest.NewRecorder()
	server.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/secure", nil))
	if res.Code != StatusUnauthorized {
		t.Fatalf("unexpected status: %d", res.Code)
	}
}

func TestValidatorMiddleware(t *testing.T) {
	validator := func(c Context) error {
		if c.Request().Header.Get("X-Allow") != "yes" {
			return HTTPError(StatusBadRequest, "blocked")
		}
		return nil
	}
	server := NewServer(WithValidators(validator))
	server.RegisterRoutes(func(a *App) {
		a.GET("/secure", func(c Context) error { return c.NoContent(StatusOK) })
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))

	if _, err := client.Get(context.Background(), "/secure", nil); err == nil {
		t.Fatalf("expected validation error")
	}

	resp, err := client.Get(context.Background(), "/secure", nil, WithRequestHeaders(map[string]string{"X-Allow": "yes"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode() != StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode())
	}
}

func TestCORS(t *testing.T) {
	corsCfg := DefaultCORSConfig
	corsCfg.AllowOrigins = []string{"http://example.com"}
	server := NewServer(WithCORS(&corsCfg))
	server.RegisterRoutes(func(a *App) {
		a.GET("/ping", func(c Context) error { return c.NoContent(StatusOK) })
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))
	resp, err := client.Get(context.Background(), "/ping", nil, WithRequestHeaders(map[string]string{
		"Origin": "http://example.com",
	}))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "http://example.com" {
		t.Fatalf("expected CORS allow origin header, got %q", resp.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRequestIDIsGenerated(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/ping", func(c Context) error { return c.NoContent(StatusOK) })
	})

	res := httptest.NewRecorder()
	server.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := res.Header().Get("X-Request-Id")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", id, err)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer(WithLogger(zerolog.New(&buf)))
	server.RegisterRoutes(func(a *App) {
		a.GET("/ping", func(c Context) error { return c.NoContent(StatusOK) })
	})

	server.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	line := buf.String()
	if !strings.Contains(line, `"uri":"/ping"`) || !strings.Contains(line, `"status":200`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}

func TestRateLimit(t *testing.T) {
	server := NewServer(WithRateLimit(0.01, 0))
	server.RegisterRoutes(func(a *App) {
		a.GET("/ping", func(c Context) error { return c.NoContent(StatusOK) })
	})

	first := httptest.NewRecorder()
	server.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if first.Code != StatusOK {
		t.Fatalf("first request status: %d", first.Code)
	}

	second := httptest.NewRecorder()
	server.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if second.Code != StatusTooManyRequests {
		t.Fatalf("second request status: %d", second.Code)
	}
}

func TestRouterGroup(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.Group("/v1").
			GET("/ping", func(c Context) error { return c.JSON(StatusOK, map[string]string{"message": "pong"}) }).
			Add(Route{Method: "post", Path: "/echo", Handler: func(c Context) error {
				var payload map[string]any
				if err := c.Bind(&payload); err != nil {
					return HTTPError(StatusBadRequest, "invalid body")
				}
				return c.JSON(StatusOK, payload)
			}}, Route{Method: "GET"})
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))

	var body map[string]string
	if _, err := client.Get(context.Background(), "/v1/ping", &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["message"] != "pong" {
		t.Fatalf("unexpected body: %#v", body)
	}

	var echoed map[string]string
	if _, err := client.Post(context.Background(), "/v1/echo", map[string]string{"hello": "world"}, &echoed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if echoed["hello"] != "world" {
		t.Fatalf("unexpected POST response: %v", echoed)
	}
}

func TestClientRequestOptions(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/opts", func(c Context) error {
			return c.JSON(StatusOK, map[string]string{
				"auth":   c.Request().Header.Get("Authorization"),
				"custom": c.Request().Header.Get("X-Custom"),
				"cfg":    c.Request().Header.Get("X-Config"),
				"q":      c.QueryParam("q"),
			})
		})
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(
		WithBaseURL(ts.BaseURL()),
		WithRestyConfig(func(rc RestClient) { rc.SetHeader("X-Config", "hooked") }),
	)

	var out map[string]string
	_, err := client.Get(context.Background(), "/opts", &out,
		WithBearer("token123"),
		WithRequestHeaders(map[string]string{"X-Custom": "yes"}),
		WithQuery(map[string]string{"q": "search"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["auth"] != "Bearer token123" || out["custom"] != "yes" || out["q"] != "search" || out["cfg"] != "hooked" {
		t.Fatalf("unexpected headers/query: %v", out)
	}
}

func TestServerStartStopsOnCancel(t *testing.T) {
	server := NewServer(WithAddress("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Start() error = %v, want context.Canceled", err)
	}
}
