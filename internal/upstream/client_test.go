package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/academy-portal/internal"
	"github.com/frahmantamala/academy-portal/internal/session"
)

func TestUpstream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Upstream Module Suite")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		client  *Client
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		client = NewClient(internal.UpstreamConfig{
			BaseURL: server.URL,
			APIKey:  "portal-key",
		}, discardLogger())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Authenticate", func() {
		It("posts credentials and parses the returned identity", func() {
			var gotPath, gotAPIKey string
			handler = func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAPIKey = r.Header.Get("X-Api-Key")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{
					"user": {
						"id": 42,
						"firstName": "Awa",
						"lastName": "Diallo",
						"email": "awa@academy.example",
						"permissions": ["USER_READ"],
						"mustChangePassword": false
					},
					"accessToken": "upstream-token"
				}`))
			}

			ident, err := client.Authenticate(ctx, "awa@academy.example", "secret")

			Expect(err).NotTo(HaveOccurred())
			Expect(gotPath).To(Equal("/auth/login"))
			Expect(gotAPIKey).To(Equal("portal-key"))
			Expect(ident.ID).To(Equal(int64(42)))
			Expect(ident.Permissions).To(ConsistOf("USER_READ"))
		})

		It("maps 401 to invalid credentials", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}

			_, err := client.Authenticate(ctx, "awa@academy.example", "wrong")

			Expect(errors.Is(err, internal.ErrInvalidCredentials)).To(BeTrue())
		})

		It("maps other failures to upstream unavailable", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}

			_, err := client.Authenticate(ctx, "awa@academy.example", "secret")

			Expect(errors.Is(err, internal.ErrUpstreamUnavailable)).To(BeTrue())
		})

		It("treats unparsable bodies as upstream unavailable", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>oops</html>"))
			}

			_, err := client.Authenticate(ctx, "awa@academy.example", "secret")

			Expect(errors.Is(err, internal.ErrUpstreamUnavailable)).To(BeTrue())
		})

		It("reports connection failures as upstream unavailable", func() {
			server.Close()

			_, err := client.Authenticate(ctx, "awa@academy.example", "secret")

			Expect(errors.Is(err, internal.ErrUpstreamUnavailable)).To(BeTrue())
		})
	})

	Describe("ListPeriods", func() {
		It("fetches and parses the period listing", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/sessions"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`[
					{"id": 5, "title": "2024-2025", "status": "TERMINATED"},
					{"id": 7, "title": "2025-2026", "status": "IN_PROGRESS", "rate": 5.5}
				]`))
			}

			periods, err := client.ListPeriods(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(periods).To(HaveLen(2))
			Expect(periods[1].Status).To(Equal(session.StatusInProgress))
			Expect(periods[1].Rate).To(Equal(5.5))
		})

		It("wraps non-200 answers in a lookup error", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}

			_, err := client.ListPeriods(ctx)

			Expect(errors.Is(err, internal.ErrSessionLookupFailed)).To(BeTrue())
		})

		It("wraps connection failures in a lookup error", func() {
			server.Close()

			_, err := client.ListPeriods(ctx)

			Expect(errors.Is(err, internal.ErrSessionLookupFailed)).To(BeTrue())
		})
	})
})
