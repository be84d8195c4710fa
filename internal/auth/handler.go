package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/frahmantamala/academy-portal/internal"
	"github.com/frahmantamala/academy-portal/internal/identity"
	"github.com/frahmantamala/academy-portal/internal/session"
	"github.com/frahmantamala/academy-portal/internal/transport"
	"github.com/frahmantamala/academy-portal/pkg/logger"
)

// Authenticator is the slice of the academy API the login flow needs.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (identity.Identity, error)
}

// SessionStore is what the handler needs from the session store.
type SessionStore interface {
	Login(ctx context.Context, ident identity.Identity) error
	Logout(ctx context.Context) error
	Loading() bool
	Identity() *identity.Identity
	CurrentPeriod() *session.Period
}

type Handler struct {
	*transport.BaseHandler
	upstream Authenticator
	store    SessionStore
	tokens   TokenGenerator
}

func NewHandler(upstream Authenticator, store SessionStore, tokens TokenGenerator) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		upstream:    upstream,
		store:       store,
		tokens:      tokens,
	}
}

type loginResponse struct {
	AccessToken string             `json:"accessToken"`
	User        *identity.Identity `json:"user"`
	Session     *session.Period    `json:"session,omitempty"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ident, err := h.upstream.Authenticate(r.Context(), dto.Email, dto.Password)
	if err != nil {
		h.Logger.Error("authentication failed", "error", err, "email", dto.Email)
		h.WriteAppError(w, err, "internal server error")
		return
	}

	if err := h.store.Login(r.Context(), ident); err != nil {
		switch {
		case errors.Is(err, internal.ErrPasswordChangeRequired):
			h.WriteJSON(w, http.StatusConflict, map[string]interface{}{
				"mustChangePassword": true,
				"message":            "a password change is required before signing in",
			})
		default:
			h.Logger.Error("login failed", "error", err, "email", dto.Email)
			h.WriteError(w, http.StatusInternalServerError, "an error occurred during login")
		}
		return
	}

	token, err := h.tokens.Generate(ident)
	if err != nil {
		h.Logger.Error("failed to generate portal token", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "an error occurred during login")
		return
	}

	h.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		User:        h.store.Identity(),
		Session:     h.store.CurrentPeriod(),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Logout(r.Context()); err != nil {
		h.Logger.Error("logout failed", "error", err)
		h.WriteAppError(w, err, "an error occurred during logout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "no active session")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": ident})
}

// AuthMiddleware validates the portal token and binds the stored
// identity into the request context. The token only proves the browser
// completed a login; the session store stays the source of truth.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// While rehydration runs the store cannot say who is signed in;
		// answer the same way the guards do rather than denying a
		// session that may well exist.
		if h.store.Loading() {
			w.Header().Set("Retry-After", "1")
			h.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "initializing"})
			return
		}

		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := h.tokens.Validate(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ident := h.store.Identity()
		if ident == nil {
			h.WriteError(w, http.StatusUnauthorized, "no active session")
			return
		}

		if claims.Subject != strconv.FormatInt(ident.ID, 10) {
			h.Logger.Warn("token subject does not match active session",
				"subject", claims.Subject, "identity_id", ident.ID)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := internal.ContextWithIdentity(r.Context(), ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
