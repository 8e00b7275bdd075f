package middleware

import (
	"net/http"
	"strings"
)

const (
	// JSON and uploaded images only; nothing here should ever execute.
	apiCSP = "default-src 'none'; " +
		"img-src 'self'; " +
		"frame-ancestors 'none';"

	// The swagger UI bootstraps itself with an inline script.
	docsCSP = "default-src 'self'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:; " +
		"frame-ancestors 'none';"
)

func SecurityHeaders(isProd bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if isProd {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			csp := apiCSP
			if strings.HasPrefix(r.URL.Path, "/swagger/") {
				csp = docsCSP
			}
			w.Header().Set("Content-Security-Policy", csp)

			next.ServeHTTP(w, r)
		})
	}
}
