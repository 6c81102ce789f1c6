package backend

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

	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

const (
	defaultTimeout              = 10 * time.Second
	errorBodyReadLimit    int64 = 4096
	unavailableMessage          = "quote service unavailable"
)

var errBaseURLRequired = errors.New("quote service base url is required")

// Client talks to the quote service over JSON/HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a client rooted at baseURL, e.g. https://api.example.com/api.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("parse quote service base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SubmitQuote posts the quote for a service request and returns the persisted quote.
func (c *Client) SubmitQuote(ctx context.Context, requestID string, req types.SubmitQuoteRequest) (types.Quote, error) {
	return c.do(ctx, http.MethodPost, quotePath(requestID, ""), req)
}

// AcceptQuote records the client's acceptance of a submitted quote.
func (c *Client) AcceptQuote(ctx context.Context, requestID string) (types.Quote, error) {
	return c.do(ctx, http.MethodPost, quotePath(requestID, "accept"), nil)
}

// RejectQuote records the client's rejection with an optional reason.
func (c *Client) RejectQuote(ctx context.Context, requestID string, reason *string) (types.Quote, error) {
	return c.do(ctx, http.MethodPost, quotePath(requestID, "reject"), types.RejectQuoteRequest{Reason: reason})
}

// GetQuote fetches the current quote for a service request.
func (c *Client) GetQuote(ctx context.Context, requestID string) (types.Quote, error) {
	return c.do(ctx, http.MethodGet, quotePath(requestID, ""), nil)
}

func quotePath(requestID, action string) string {
	path := "/quotes/" + url.PathEscape(requestID)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) do(ctx context.Context, method, path string, body any) (types.Quote, error) {
	if c == nil {
		return types.Quote{}, pkgerrors.New(pkgerrors.CodeDependency, "quote service client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return types.Quote{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal quote request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return types.Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build quote request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return types.Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, unavailableMessage)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Quote{}, decodeFailure(resp)
	}

	var quote types.Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return types.Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode quote response")
	}
	return quote, nil
}

// errorBody is the failure payload; only "error" is guaranteed.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func decodeFailure(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))

	message := unavailableMessage
	details := map[string]any{"status": resp.StatusCode}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := strings.TrimSpace(body.Error); msg != "" {
			message = msg
		}
		if body.Code != "" {
			details["code"] = body.Code
		}
		if body.Details != nil {
			details["details"] = body.Details
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, message).WithDetails(details)
}

// StatusCode returns the HTTP status carried by a failure from this client, or 0.
func StatusCode(err error) int {
	typed := pkgerrors.As(err)
	if typed == nil {
		return 0
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return 0
	}
	status, _ := details["status"].(int)
	return status
}
