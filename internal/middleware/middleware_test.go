package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter("test", rate.Every(time.Hour), 2)
	handler := rl.Middleware(okHandler())

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i := range 2 {
		if rr := do("10.0.0.1:1234"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}

	rr := do("10.0.0.1:5678")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "3600" {
		t.Errorf("expected Retry-After 3600, got %q", rr.Header().Get("Retry-After"))
	}

	if rr := do("10.0.0.2:1234"); rr.Code != http.StatusOK {
		t.Errorf("other clients must not be limited, got %d", rr.Code)
	}
}

func TestRateLimiterPresets(t *testing.T) {
	login := LoginRateLimiter()
	for i := range 5 {
		if !login.Allow("1.2.3.4") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if login.Allow("1.2.3.4") {
		t.Error("sixth login attempt within a minute should be limited")
	}

	global := DefaultRateLimiter()
	allowed := 0
	for range 25 {
		if global.Allow("5.6.7.8") {
			allowed++
		}
	}
	if allowed < 20 || allowed > 21 {
		t.Errorf("expected about 20 immediate requests, got %d", allowed)
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("GET", "/api/posts", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON body, got %q", ct)
	}
}

func TestLogger(t *testing.T) {
	mux := http.NewServeMux()
	var seen string
	mux.HandleFunc("GET /api/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	handler := Logger(mux)

	t.Run("GeneratesRequestID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/posts/abc", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		id := rr.Header().Get("X-Request-ID")
		if id == "" || id != seen {
			t.Errorf("expected generated request id in header and context, got %q / %q", id, seen)
		}
		if rr.Code != http.StatusTeapot {
			t.Errorf("expected status %d, got %d", http.StatusTeapot, rr.Code)
		}
	})

	t.Run("KeepsClientRequestID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/posts/abc", nil)
		req.Header.Set("X-Request-ID", "client-id")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Header().Get("X-Request-ID") != "client-id" {
			t.Errorf("expected client-id, got %q", rr.Header().Get("X-Request-ID"))
		}
	})

	t.Run("Unmatched", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/nope", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rr.Code)
		}
	})
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name   string
		isProd bool
		hsts   bool
	}{
		{"Dev", false, false},
		{"Prod", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			SecurityHeaders(tt.isProd)(okHandler()).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

			if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("expected nosniff")
			}
			if rr.Header().Get("Content-Security-Policy") == "" {
				t.Error("expected CSP header")
			}
			if got := rr.Header().Get("Strict-Transport-Security") != ""; got != tt.hsts {
				t.Errorf("expected HSTS=%v, got %v", tt.hsts, got)
			}
		})
	}
}

func TestSecurityHeadersDocsCSP(t *testing.T) {
	handler := SecurityHeaders(false)(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/posts", nil))
	if got := rr.Header().Get("Content-Security-Policy"); got != apiCSP {
		t.Errorf("expected API policy, got %q", got)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/swagger/index.html", nil))
	if got := rr.Header().Get("Content-Security-Policy"); got != docsCSP {
		t.Errorf("expected docs policy, got %q", got)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"http://localhost:3000"})(okHandler())

	t.Run("AllowedPreflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/posts", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
			t.Errorf("expected origin to be allowed, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("UnknownOrigin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/posts", nil)
		req.Header.Set("Origin", "http://evil.example")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Errorf("expected no CORS header, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
		}
	})
}
