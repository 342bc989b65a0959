// Package apiclient is the typed HTTP client for the CircularNest REST API. It
// attaches the stored bearer token to every request and turns any 401 into a
// cleared session plus a redirect to the login route.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/CircularNest/internal/nav"
)

var (
	// ErrUnauthorized is returned for every 401 after the session was cleared.
	ErrUnauthorized = errors.New("session expired, please log in again")
	// ErrHTMLResponse means an HTML page came back where JSON was expected,
	// which happens when the API host is misconfigured.
	ErrHTMLResponse = errors.New("API backend is not responding correctly. Please check server configuration")
)

// maxJSONBody bounds how much of a JSON response is read.
const maxJSONBody = 8 << 20

// APIError is a non-2xx response or a `success: false` envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Message returns the most specific user-facing text for err: the message the
// server sent, the HTML-misconfiguration notice, or fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrHTMLResponse), errors.Is(err, ErrUnauthorized):
		return err.Error()
	default:
		return fallback
	}
}

// TokenStore is where the bearer token lives between requests.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// Client talks to one API origin.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenStore
	nav     nav.Navigator
	onAuth  []func()
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithNavigator sets where the client redirects after a 401.
func WithNavigator(n nav.Navigator) Option {
	return func(c *Client) { c.nav = n }
}

// New builds a Client for baseURL.
func New(baseURL string, tokens TokenStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Tokens exposes the token store the client reads from.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// OnUnauthorized registers fn to run after a 401 cleared the stored token.
// It must be called before the client is shared between goroutines.
func (c *Client) OnUnauthorized(fn func()) {
	c.onAuth = append(c.onAuth, fn)
}

// ResolveURL turns a path or absolute URL into an absolute URL on the API
// origin.
func (c *Client) ResolveURL(ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(parsed).String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, ref string, query url.Values, body io.Reader) (*http.Request, error) {
	target, err := c.ResolveURL(ref)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			log.Printf("read stored token: %v", err)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// send executes req and handles the cross-cutting status codes.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxJSONBody))
		resp.Body.Close()
		c.expireSession()
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	return resp, nil
}

func (c *Client) expireSession() {
	if c.tokens != nil {
		if err := c.tokens.ClearToken(); err != nil {
			log.Printf("clear stored token: %v", err)
		}
	}
	for _, fn := range c.onAuth {
		fn()
	}
	if c.nav != nil {
		c.nav.Navigate(nav.RouteLogin)
	}
}

// envelope is the common part of every JSON response.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func errorMessage(status int, data []byte) string {
	var env envelope
	if json.Unmarshal(data, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return http.StatusText(status)
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 64 {
		head = head[:64]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

// doJSON sends an optional JSON body and decodes the JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.decode(req, out)
}

func (c *Client) decode(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if looksLikeHTML(data) {
		return ErrHTMLResponse
	}
	var env envelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Blob is a downloaded binary resource.
type Blob struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Fetch downloads ref (a path on the API origin or an absolute URL) with the
// bearer token attached.
func (c *Client) Fetch(ctx context.Context, ref string) (*Blob, error) {
	req, err := c.newRequest(ctx, http.MethodGet, ref, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Blob{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		FileName:    fileNameFromDisposition(resp.Header.Get("Content-Disposition")),
	}, nil
}

func fileNameFromDisposition(header string) string {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "filename=") {
			return strings.Trim(strings.TrimPrefix(part, "filename="), `"`)
		}
	}
	return ""
}

// Health pings the API.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil, nil)
}
