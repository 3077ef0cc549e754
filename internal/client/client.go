// Package client is a typed HTTP client for the personal secrets API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dimitrije/personal-secrets/pkg/dto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const apiPrefix = "/api/v1"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match 404 and 401 responses against ErrNotFound and ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	accessToken string
	log         logrus.FieldLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

func WithAccessToken(token string) Option {
	return func(c *Client) { c.accessToken = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("api request")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage pulls the message out of an error body, falling back to the raw text.
func errorMessage(data []byte, status string) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err == nil {
		for _, key := range []string{"error", "message"} {
			if msg, ok := body[key].(string); ok && msg != "" {
				return msg
			}
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return status
}

// Auth

func (c *Client) ConsentURL(ctx context.Context, provider string) (string, error) {
	var resp dto.ConsentURLResponse
	if err := c.do(ctx, http.MethodGet, "/auth/"+url.PathEscape(provider)+"/consent", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*dto.TokenResponse, error) {
	var resp dto.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/exchange", dto.ExchangeCodeRequest{Code: code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	var resp dto.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", dto.RefreshTokenRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SelectOrganization trades the current session for one scoped to orgID.
func (c *Client) SelectOrganization(ctx context.Context, orgID uuid.UUID, refreshToken string) (*dto.TokenResponse, error) {
	var resp dto.TokenResponse
	req := dto.SelectOrganizationRequest{OrganizationID: orgID, RefreshToken: refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/organization", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", dto.RefreshTokenRequest{RefreshToken: refreshToken}, nil)
}

// Users and organizations

func (c *Client) Me(ctx context.Context) (*dto.UserResponse, error) {
	var resp dto.UserResponse
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListOrganizations(ctx context.Context) ([]dto.OrganizationResponse, error) {
	var resp []dto.OrganizationResponse
	if err := c.do(ctx, http.MethodGet, "/organizations", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) CreateOrganization(ctx context.Context, name string) (*dto.OrganizationResponse, error) {
	var resp dto.OrganizationResponse
	if err := c.do(ctx, http.MethodPost, "/organizations", dto.CreateOrganizationRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Personal secrets

func (c *Client) CreatePersonalSecret(ctx context.Context, req dto.PersonalSecretRequest) (uuid.UUID, error) {
	var id string
	if err := c.do(ctx, http.MethodPost, "/personal-secrets", req, &id); err != nil {
		return uuid.Nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("server returned invalid id %q: %w", id, err)
	}
	return parsed, nil
}

func (c *Client) GetPersonalSecret(ctx context.Context, id uuid.UUID) (*dto.PersonalSecretResponse, error) {
	var resp dto.PersonalSecretResponse
	if err := c.do(ctx, http.MethodGet, "/personal-secrets/"+id.String(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListPersonalSecrets(ctx context.Context) ([]dto.PersonalSecretResponse, error) {
	resp := []dto.PersonalSecretResponse{}
	if err := c.do(ctx, http.MethodGet, "/personal-secrets", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) UpdatePersonalSecret(ctx context.Context, id uuid.UUID, req dto.UpdatePersonalSecretRequest) (*dto.PersonalSecretResponse, error) {
	var resp dto.PersonalSecretResponse
	if err := c.do(ctx, http.MethodPut, "/personal-secrets/"+id.String(), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeletePersonalSecret(ctx context.Context, id uuid.UUID) error {
	var resp dto.SuccessResponse
	if err := c.do(ctx, http.MethodDelete, "/personal-secrets/"+id.String(), nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("server did not confirm deletion of %s", id)
	}
	return nil
}
