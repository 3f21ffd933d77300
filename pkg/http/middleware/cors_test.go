package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestOriginAllowed(t *testing.T) {
	cases := []struct {
		allowed []string
		origin  string
		want    bool
	}{
		{[]string{"*"}, "https://a.example", true},
		{[]string{"https://dash.example"}, "https://dash.example", true},
		{[]string{"https://dash.example"}, "https://evil.example", false},
		{[]string{"*.example.com"}, "https://ui.example.com", true},
		{[]string{"*.example.com"}, "https://example.org", false},
		{nil, "https://dash.example", false},
	}
	for _, tc := range cases {
		if got := OriginAllowed(tc.allowed, tc.origin); got != tc.want {
			t.Errorf("OriginAllowed(%v, %q) = %v, want %v", tc.allowed, tc.origin, got, tc.want)
		}
	}
}

func newCORSServer() *echo.Echo {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins:  []string{"https://dash.example"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{echo.HeaderContentType},
		ExposeHeaders: []string{echo.HeaderRetryAfter},
		MaxAge:        600,
	}))
	e.GET("/api/markets", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.OPTIONS("/api/markets", func(c echo.Context) error { return c.NoContent(http.StatusMethodNotAllowed) })
	return e
}

func TestCORSPreflight(t *testing.T) {
	e := newCORSServer()
	req := httptest.NewRequest(http.MethodOptions, "/api/markets", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
	h := rec.Header()
	if h.Get(echo.HeaderAccessControlAllowOrigin) != "https://dash.example" ||
		h.Get(echo.HeaderAccessControlAllowMethods) != "GET, POST" ||
		h.Get(echo.HeaderAccessControlMaxAge) != "600" {
		t.Fatalf("headers %v", h)
	}
}

func TestCORSSimpleRequest(t *testing.T) {
	e := newCORSServer()

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "https://dash.example" ||
		rec.Header().Get(echo.HeaderAccessControlExposeHeaders) != echo.HeaderRetryAfter {
		t.Fatalf("headers %v", rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("foreign origin decorated: %d %v", rec.Code, rec.Header())
	}
}
