package guard

import (
	"context"
	"encoding/json"
	"net/http"
)

// Evaluator lets both guard kinds share the same HTTP adapter.
type Evaluator interface {
	Evaluate(ctx context.Context, path string) Decision
}

// Middleware interprets a guard's decision for one HTTP request:
// Render passes through, Redirect becomes a 303, Loading a 503 with a
// Retry-After hint while rehydration finishes.
func Middleware(g Evaluator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := g.Evaluate(r.Context(), r.URL.Path)
			switch decision.Action {
			case ActionLoading:
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "initializing"})
			case ActionRedirect:
				http.Redirect(w, r, decision.Target, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
