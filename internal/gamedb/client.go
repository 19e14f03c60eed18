package gamedb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"romdex/internal/services"
)

// Searcher defines the metadata API operations used by the pipeline.
type Searcher interface {
	SearchGames(ctx context.Context, query SearchQuery) ([]Game, error)
	Authenticate(ctx context.Context) error
}

// Client provides access to the game-metadata API.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	authURL      string
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a metadata API client.
func New(clientID, clientSecret, baseURL, authURL string, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errors.New("gamedb client id required")
	}
	clientSecret = strings.TrimSpace(clientSecret)
	if clientSecret == "" {
		return nil, errors.New("gamedb client secret required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("gamedb base url required")
	}
	authURL = strings.TrimSpace(authURL)
	if authURL == "" {
		return nil, errors.New("gamedb auth url required")
	}
	client := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		authURL:      authURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Authenticate fetches a fresh access token using the client-credentials
// grant. It is called lazily before the first search and again by the request
// gate when the upstream reports an expired token.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "gamedb", "auth", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "gamedb", "auth", "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return services.Wrap(services.ErrConfiguration, "gamedb", "auth",
				fmt.Sprintf("credentials rejected with status %d", resp.StatusCode), nil)
		}
		return services.Wrap(services.ErrTransient, "gamedb", "auth",
			fmt.Sprintf("token endpoint returned %d", resp.StatusCode), nil)
	}

	var payload authResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return services.Wrap(services.ErrTransient, "gamedb", "auth", "decode token response", err)
	}
	if payload.AccessToken == "" {
		return services.Wrap(services.ErrConfiguration, "gamedb", "auth", "empty access token", nil)
	}

	c.mu.Lock()
	c.token = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	c.mu.Unlock()
	return nil
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	valid := token != "" && time.Now().Before(c.tokenExpiry.Add(-30*time.Second))
	c.mu.Unlock()
	if valid {
		return token, nil
	}
	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	token = c.token
	c.mu.Unlock()
	return token, nil
}

// SearchGames executes one search query against the games endpoint. Upstream
// rejections are tagged with the sentinel errors the request gate dispatches
// on: rate limiting, expired tokens, oversized payloads, and malformed
// queries each map to a distinct marker.
func (c *Client) SearchGames(ctx context.Context, query SearchQuery) ([]Game, error) {
	body := query.Body()
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/games", strings.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gamedb", "search", "build request", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "gamedb", "search",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, services.Wrap(services.ErrRateLimited, "gamedb", "search",
			fmt.Sprintf("upstream throttled (latency=%v)", latency), nil)
	case http.StatusUnauthorized:
		return nil, services.Wrap(services.ErrAuthExpired, "gamedb", "search", "token rejected", nil)
	case http.StatusRequestEntityTooLarge:
		return nil, services.Wrap(services.ErrPayloadTooLarge, "gamedb", "search", "request body too large", nil)
	case http.StatusBadRequest:
		return nil, services.Wrap(services.ErrInvalidQuery, "gamedb", "search", "query rejected", nil)
	case http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "gamedb", "search", "endpoint not found", nil)
	default:
		return nil, services.Wrap(services.ErrTransient, "gamedb", "search",
			fmt.Sprintf("unexpected status %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var games []Game
	if err := json.NewDecoder(resp.Body).Decode(&games); err != nil {
		return nil, services.Wrap(services.ErrTransient, "gamedb", "search", "decode response", err)
	}
	return games, nil
}
