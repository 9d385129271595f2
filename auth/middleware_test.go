package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeVerifier struct {
	raw string
	err error
}

func (f *fakeVerifier) Verify(_ context.Context, raw string) error {
	f.raw = raw
	return f.err
}

func TestNewMiddlewareRequiresVerifier(t *testing.T) {
	if _, err := NewMiddleware(nil); err == nil {
		t.Fatalf("expected error when verifier is nil")
	}
}

func TestMiddlewareMarksAdminContext(t *testing.T) {
	verifier := &fakeVerifier{}
	middleware, err := NewMiddleware(verifier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer source-token")
	res := httptest.NewRecorder()

	var invoked bool
	middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invoked = true
		if !IsAdmin(r.Context()) {
			t.Fatalf("admin flag missing from context")
		}
	})).ServeHTTP(res, req)

	if !invoked {
		t.Fatalf("expected next handler to be invoked")
	}
	if verifier.raw != "source-token" {
		t.Fatalf("verifier received %q", verifier.raw)
	}
}

func TestMiddlewareRejectsWithJSON(t *testing.T) {
	middleware, err := NewMiddleware(&fakeVerifier{err: ErrInvalidToken})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	res := httptest.NewRecorder()

	middleware.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not run")
	})).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusUnauthorized)
	}
	var body map[string]string
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != ErrInvalidToken.Error() {
		t.Fatalf("error body = %q", body["error"])
	}
}

func TestMiddlewareForbiddenWithoutAdminHash(t *testing.T) {
	middleware, err := NewMiddleware(NewAdminGuard(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	res := httptest.NewRecorder()
	middleware.Handler(nil).ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusForbidden)
	}
}

func TestMiddlewareSkipperShortCircuits(t *testing.T) {
	verifier := &fakeVerifier{err: ErrInvalidToken}
	middleware, err := NewMiddleware(verifier, WithSkipper(func(*http.Request) bool { return true }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var invoked bool
	middleware.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		invoked = true
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !invoked {
		t.Fatalf("expected handler invocation")
	}
	if verifier.raw != "" {
		t.Fatalf("verifier should not be called when skipped")
	}
}

func TestMiddlewareCustomErrorHandler(t *testing.T) {
	var received error
	middleware, err := NewMiddleware(&fakeVerifier{}, WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		received = err
		w.WriteHeader(http.StatusTeapot)
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := httptest.NewRecorder()
	middleware.Handler(nil).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	if !errors.Is(received, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", received)
	}
	if res.Code != http.StatusTeapot {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestBearerTokenExtractor(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{"", "", ErrMissingToken},
		{"Basic abc", "", ErrInvalidToken},
		{"Bearer   ", "", ErrMissingToken},
		{"bearer tok", "tok", nil},
	}
	extract := BearerTokenExtractor()
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		got, err := extract(req)
		if !errors.Is(err, tc.err) {
			t.Fatalf("extract(%q) error = %v, want %v", tc.header, err, tc.err)
		}
		if got != tc.want {
			t.Fatalf("extract(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestHeaderTokenExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Admin-Token", " tok ")
	got, err := HeaderTokenExtractor("X-Admin-Token")(req)
	if err != nil || got != "tok" {
		t.Fatalf("extract = %q, %v", got, err)
	}
}
