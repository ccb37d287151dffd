// Package api wraps the backend's REST contract for authentication and
// profile hydration.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	pinerrors "github.com/jrsteele09/go-pin-client/internal/errors"
	"github.com/jrsteele09/go-pin-client/internal/telemetry"
	"github.com/jrsteele09/go-pin-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// Client talks to the backend API.
type Client struct {
	baseURL  string
	http     *http.Client
	reporter telemetry.Reporter
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests point it at httptest servers).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithReporter sends transport failures to r.
func WithReporter(r telemetry.Reporter) ClientOption {
	return func(c *Client) {
		c.reporter = r
	}
}

func New(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{},
		reporter: telemetry.Nop{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// RegisterUser submits a registration. A backend errorCode comes back as *RejectionError.
func (c *Client) RegisterUser(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, c.http, http.MethodPost, PathRegisterUser, req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorCode != "" {
		return nil, rejectionFrom(resp)
	}
	return &resp, nil
}

// LoginUser submits credentials. A backend errorCode comes back as *RejectionError.
func (c *Client) LoginUser(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, c.http, http.MethodPost, PathLoginUser, req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorCode != "" {
		return nil, rejectionFrom(resp)
	}
	return &resp, nil
}

// GetUser fetches the canonical profile for id.
func (c *Client) GetUser(ctx context.Context, token string, id int64) (users.Fields, error) {
	var resp AuthResponse
	if err := c.do(ctx, c.bearer(token), http.MethodGet, fmt.Sprintf(PathUser, id), nil, &resp); err != nil {
		return users.Fields{}, err
	}
	if resp.ErrorCode != "" {
		return users.Fields{}, rejectionFrom(resp)
	}
	return resp.Fields, nil
}

// UpdateUser edits the profile for id and returns the updated fields.
func (c *Client) UpdateUser(ctx context.Context, token string, id int64, req UpdateRequest) (users.Fields, error) {
	var resp AuthResponse
	if err := c.do(ctx, c.bearer(token), http.MethodPut, fmt.Sprintf(PathUser, id), req, &resp); err != nil {
		return users.Fields{}, err
	}
	if resp.ErrorCode != "" {
		return users.Fields{}, rejectionFrom(resp)
	}
	return resp.Fields, nil
}

// bearer returns a client that attaches token as a Bearer credential.
func (c *Client) bearer(token string) *http.Client {
	return &http.Client{
		Timeout: c.http.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.http.Transport,
		},
	}
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[api] encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "[api] build request")
	}
	requestID := uuid.New().String()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.reporter.CaptureException(err)
		}
		log.Debug().Err(err).Str("request_id", requestID).Str("method", method).Str("path", path).Msg("api request failed")
		return errors.Wrapf(err, "[api] %s %s", method, path)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api request")

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrapf(err, "[api] read %s %s", method, path)
	}

	// Structured rejections may arrive with any status, so try the body first.
	decodeErr := json.Unmarshal(data, out)
	if decodeErr == nil {
		if r, ok := out.(*AuthResponse); ok && r.ErrorCode != "" {
			return nil
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := errors.Wrapf(pinerrors.ErrUnexpectedStatus, "[api] %s %s returned %d", method, path, resp.StatusCode)
		if resp.StatusCode >= 500 {
			c.reporter.CaptureException(err)
		}
		return err
	}
	if decodeErr != nil {
		return errors.Wrapf(pinerrors.ErrDecodeResponse, "[api] %s %s: %s", method, path, decodeErr.Error())
	}
	return nil
}
