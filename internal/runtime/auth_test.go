package runtime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestJWTRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	signed, err := SignJWT("user-42", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	var gotUser string
	next := func(c echo.Context) error {
		gotUser = c.Get("user_id").(string)
		sub, ok := SubjectFromContext(c.Request().Context())
		if !ok || sub != "user-42" {
			t.Fatalf("subject missing from request context")
		}
		return c.NoContent(http.StatusOK)
	}
	if err := EchoAuthMiddleware(secret)(next)(ctx); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if gotUser != "user-42" {
		t.Fatalf("expected user-42, got %q", gotUser)
	}
}

func TestJWTCookieFallback(t *testing.T) {
	secret := []byte("test-secret")
	signed, err := SignJWT("user-7", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "auth", Value: signed})
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	if err := EchoAuthMiddleware(secret)(next)(ctx); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if ctx.Get("user_id").(string) != "user-7" {
		t.Fatalf("cookie token not accepted")
	}
}

func TestJWTRejections(t *testing.T) {
	secret := []byte("test-secret")
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	// missing token
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := e.NewContext(req, httptest.NewRecorder())
	err := EchoAuthMiddleware(secret)(next)(ctx)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %#v", err)
	}

	// token signed with another secret
	signed, _ := SignJWT("user-1", []byte("other"), time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	ctx = e.NewContext(req, httptest.NewRecorder())
	err = EchoAuthMiddleware(secret)(next)(ctx)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign token, got %#v", err)
	}

	// expired token
	signed, _ = SignJWT("user-1", secret, -time.Minute)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	ctx = e.NewContext(req, httptest.NewRecorder())
	err = EchoAuthMiddleware(secret)(next)(ctx)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %#v", err)
	}
}
