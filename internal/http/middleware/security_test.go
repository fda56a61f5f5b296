package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func doSecured(t *testing.T, opt SecurityOptions, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(opt))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := doSecured(t, SecurityOptions{}, nil)

	for k, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := w.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	// Opt-in headers stay silent by default.
	if w.Header().Get("Permissions-Policy") != "" {
		t.Error("Permissions-Policy should be opt-in")
	}
	if w.Header().Get("Cache-Control") != "" {
		t.Error("Cache-Control should be opt-in")
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should never appear on plain HTTP")
	}
	// ETag is always exposed for conditional history responses.
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "ETag") {
		t.Errorf("Expose-Headers = %q, want ETag", w.Header().Get("Access-Control-Expose-Headers"))
	}
}

func TestSecurityHeaders_PolicyAndNoStore(t *testing.T) {
	w := doSecured(t, SecurityOptions{EnablePolicy: true, NoStore: true}, nil)

	if got := w.Header().Get("Permissions-Policy"); !strings.Contains(got, "geolocation=()") {
		t.Errorf("Permissions-Policy = %q", got)
	}
	if got := w.Header().Get("X-Permitted-Cross-Domain-Policies"); got != "none" {
		t.Errorf("X-Permitted-Cross-Domain-Policies = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
	if got := w.Header().Get("Expires"); got != "0" {
		t.Errorf("Expires = %q", got)
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour}

	w := doSecured(t, opt, nil)
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be set on plain HTTP")
	}

	w = doSecured(t, opt, func(req *http.Request) {
		req.Header.Set("X-Forwarded-Proto", "https")
	})
	got := w.Header().Get("Strict-Transport-Security")
	if !strings.Contains(got, "max-age=86400") || !strings.Contains(got, "includeSubDomains") {
		t.Fatalf("Strict-Transport-Security = %q", got)
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-1")
		c.Next()
	})
	r.Use(SecurityHeaders(SecurityOptions{}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	exposed := w.Header().Get("Access-Control-Expose-Headers")
	if !strings.Contains(exposed, "X-Request-ID") || !strings.Contains(exposed, "ETag") {
		t.Fatalf("Expose-Headers = %q", exposed)
	}
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 7: "7", 86400: "86400", -12: "-12"}
	for in, want := range cases {
		if got := itoa(in); got != want {
			t.Errorf("itoa(%d) = %q, want %q", in, got, want)
		}
	}
}
