package middleware

import (
	"net/http"
	"strings"
)

// CORSWithOrigins returns a CORS middleware restricted to the
// comma-separated origins list from config; "*" allows everything.
func CORSWithOrigins(allowedOrigins string) func(http.Handler) http.Handler {
	allowAll := allowedOrigins == "" || allowedOrigins == "*"
	origins := map[string]struct{}{}
	for _, o := range strings.Split(allowedOrigins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins[trimmed] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else if _, ok := origins[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Trace-ID")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
