package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func corsServer(cfg CORSConfig) *echo.Echo {
	e := echo.New()
	e.Use(CORS(cfg))
	e.GET("/api/operations", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.OPTIONS("/api/operations", func(c echo.Context) error { return c.NoContent(http.StatusMethodNotAllowed) })
	return e
}

func TestCORSPreflight(t *testing.T) {
	e := corsServer(CORSConfig{
		AllowOrigins: []string{"https://dash.example"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		MaxAge:       10 * time.Minute,
	})
	req := httptest.NewRequest(http.MethodOptions, "/api/operations", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rec.Code)
	}
	h := rec.Header()
	if h.Get(echo.HeaderAccessControlAllowOrigin) != "https://dash.example" ||
		h.Get(echo.HeaderAccessControlAllowMethods) != "GET, POST" ||
		h.Get(echo.HeaderAccessControlMaxAge) != "600" {
		t.Fatalf("headers=%v", h)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	e := corsServer(CORSConfig{AllowOrigins: []string{"https://dash.example"}})
	req := httptest.NewRequest(http.MethodGet, "/api/operations", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("status=%d headers=%v", rec.Code, rec.Header())
	}
	if rec.Header().Get(echo.HeaderVary) != echo.HeaderOrigin {
		t.Fatalf("missing Vary: %v", rec.Header())
	}
}
