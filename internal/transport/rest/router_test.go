package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/academy-portal/internal"
	"github.com/frahmantamala/academy-portal/internal/auth"
	"github.com/frahmantamala/academy-portal/internal/events"
	"github.com/frahmantamala/academy-portal/internal/identity"
	"github.com/frahmantamala/academy-portal/internal/session"
	"github.com/frahmantamala/academy-portal/internal/transport/rest"
	"github.com/frahmantamala/academy-portal/internal/upstream"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "REST Transport Suite")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// academyStub plays the upstream API: one known operator, one period in
// progress.
func academyStub() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var creds struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Email != "awa@academy.example" || creds.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"user": {
					"id": 42,
					"firstName": "Awa",
					"lastName": "Diallo",
					"email": "awa@academy.example",
					"permissions": ["USER_READ", "SESSION_DEFINE"],
					"mustChangePassword": false
				},
				"accessToken": "upstream-token"
			}`))
		case "/sessions":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"id": 5, "title": "2024-2025", "status": "TERMINATED"},
				{"id": 7, "title": "2025-2026", "status": "IN_PROGRESS", "rate": 5.5}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

var _ = Describe("Router", func() {
	var (
		academy *httptest.Server
		router  *chi.Mux
		store   *session.Store
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		academy = academyStub()

		log := discardLogger()
		cfg := &internal.Config{
			Server: internal.ServerConfig{AllowedOrigins: "*"},
			Upstream: internal.UpstreamConfig{
				BaseURL: academy.URL,
				Timeout: 5 * time.Second,
			},
			Security: internal.SecurityConfig{
				TokenSecret:    "a-secret-long-enough-for-testing",
				AccessTokenTTL: time.Hour,
			},
		}

		storage := session.NewMemoryStorage()
		bus := events.NewEventBus(log)
		client := upstream.NewClient(cfg.Upstream, log)
		store = session.NewStore(storage, client, bus, log)

		tokens := auth.NewJWTTokenGenerator(cfg.Security.TokenSecret, cfg.Security.AccessTokenTTL)
		authHandler := auth.NewHandler(client, store, tokens)
		sessionHandler := session.NewHandler(store)

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, cfg, storage, store, authHandler, sessionHandler, bus, log)
	})

	AfterEach(func() {
		academy.Close()
	})

	do := func(method, path, token string, body interface{}) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(raw)
		}
		req := httptest.NewRequest(method, path, reader)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	login := func() string {
		rec := do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "awa@academy.example",
			"password": "secret",
		})
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp struct {
			AccessToken string `json:"accessToken"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.AccessToken).NotTo(BeEmpty())
		return resp.AccessToken
	}

	It("answers 503 with a retry hint until rehydration finishes", func() {
		rec := do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "awa@academy.example",
			"password": "secret",
		})

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(rec.Header().Get("Retry-After")).To(Equal("1"))
	})

	It("holds protected routes during rehydration instead of denying the session", func() {
		tokens := auth.NewJWTTokenGenerator("a-secret-long-enough-for-testing", time.Hour)
		token, err := tokens.Generate(identity.Identity{ID: 42, Email: "awa@academy.example"})
		Expect(err).NotTo(HaveOccurred())

		rec := do(http.MethodGet, "/api/v1/users/me", token, nil)

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(rec.Header().Get("Retry-After")).To(Equal("1"))
	})

	Context("after rehydration", func() {
		BeforeEach(func() {
			store.Rehydrate(ctx)
		})

		It("serves liveness and readiness", func() {
			Expect(do(http.MethodGet, "/api/v1/ping", "", nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/api/v1/health", "", nil).Code).To(Equal(http.StatusOK))
		})

		It("runs the whole session lifecycle over HTTP", func() {
			token := login()

			// signed in: the login page bounces to the dashboard
			rec := do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{})
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get("Location")).To(Equal("/dashboard"))

			// the period in progress was adopted during login
			rec = do(http.MethodGet, "/api/v1/session", token, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("2025-2026"))

			// redefine the period wholesale
			rec = do(http.MethodPut, "/api/v1/session", token, map[string]interface{}{
				"id":     11,
				"title":  "2026-2027",
				"status": "PENDING",
			})
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = do(http.MethodGet, "/api/v1/session", token, nil)
			Expect(rec.Body.String()).To(ContainSubstring("2026-2027"))

			// clear it
			Expect(do(http.MethodDelete, "/api/v1/session", token, nil).Code).To(Equal(http.StatusNoContent))
			Expect(do(http.MethodGet, "/api/v1/session", token, nil).Code).To(Equal(http.StatusNotFound))

			// logout invalidates the session behind the token
			Expect(do(http.MethodPost, "/api/v1/auth/logout", token, nil).Code).To(Equal(http.StatusNoContent))
			Expect(do(http.MethodGet, "/api/v1/users/me", token, nil).Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects protected routes without a token", func() {
			Expect(do(http.MethodGet, "/api/v1/users/me", "", nil).Code).To(Equal(http.StatusUnauthorized))
			Expect(do(http.MethodGet, "/api/v1/session", "", nil).Code).To(Equal(http.StatusUnauthorized))
		})

		It("filters navigation to the operator's permissions", func() {
			token := login()

			rec := do(http.MethodGet, "/api/v1/navigation", token, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp struct {
				Entries []struct {
					Label string `json:"label"`
				} `json:"entries"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())

			labels := make([]string, 0, len(resp.Entries))
			for _, e := range resp.Entries {
				labels = append(labels, e.Label)
			}
			Expect(labels).To(ContainElement("Dashboard"))
			Expect(labels).To(ContainElement("Users"))
			Expect(labels).NotTo(ContainElement("Loans"))
		})

		It("rejects malformed period payloads", func() {
			token := login()

			rec := do(http.MethodPut, "/api/v1/session", token, map[string]interface{}{
				"id":     0,
				"title":  "",
				"status": "WHENEVER",
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("OpenAPI contract", func() {
		It("documents every mounted API route", func() {
			loader := openapi3.NewLoader()
			doc, err := loader.LoadFromFile("../../../api/openapi.yml")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Validate(loader.Context)).To(Succeed())

			err = chi.Walk(router, func(method, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
				if !strings.HasPrefix(route, "/api/v1/") {
					return nil
				}
				specPath := strings.TrimPrefix(route, "/api/v1")
				item := doc.Paths.Value(specPath)
				Expect(item).NotTo(BeNil(), "route %s missing from the OpenAPI document", specPath)
				Expect(item.GetOperation(method)).NotTo(BeNil(), "operation %s %s missing from the OpenAPI document", method, specPath)
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
