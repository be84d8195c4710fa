// Package upstream wraps the academy REST API that owns credentials,
// permission grants and academic periods. The gateway never implements
// that business logic itself; it only calls it.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/academy-portal/internal"
	"github.com/frahmantamala/academy-portal/internal/identity"
	"github.com/frahmantamala/academy-portal/internal/session"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg internal.UpstreamConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User        identity.Identity `json:"user"`
	AccessToken string            `json:"accessToken"`
}

// Authenticate forwards credentials to the academy API. Password
// verification happens entirely upstream.
func (c *Client) Authenticate(ctx context.Context, email, password string) (identity.Identity, error) {
	body, err := json.Marshal(credentialsPayload{Email: email, Password: password})
	if err != nil {
		return identity.Identity{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return identity.Identity{}, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("upstream authenticate call failed", "error", err)
		return identity.Identity{}, internal.ErrUpstreamUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return identity.Identity{}, internal.ErrInvalidCredentials
	default:
		return identity.Identity{}, internal.ErrUpstreamUnavailable.WithCause(
			fmt.Errorf("unexpected status %d from authenticate", resp.StatusCode))
	}

	var parsed authResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return identity.Identity{}, internal.ErrUpstreamUnavailable.WithCause(err)
	}

	return parsed.User, nil
}

// ListPeriods fetches every operational period; the store filters for
// the one in progress.
func (c *Client) ListPeriods(ctx context.Context) ([]session.Period, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, internal.ErrSessionLookupFailed.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, internal.ErrSessionLookupFailed.WithCause(
			fmt.Errorf("unexpected status %d from session listing", resp.StatusCode))
	}

	var periods []session.Period
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&periods); err != nil {
		return nil, internal.ErrSessionLookupFailed.WithCause(err)
	}

	return periods, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
}
