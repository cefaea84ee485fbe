// Package mcp is a minimal streamable-HTTP MCP client: the initialize
// handshake and tools/call, with one token refresh and one rate-limit retry.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultProtocolVersion = "2024-11-05"
	DefaultClientName      = "benchmark"
	DefaultClientVersion   = "2.0"
	DefaultCallTimeout     = 60 * time.Second
)

var (
	// ErrUnauthorized means the backend rejected the token and no refresh
	// could replace it.
	ErrUnauthorized = errors.New("mcp: unauthorized")
	// ErrHandshake means the backend answered initialize with an error.
	ErrHandshake = errors.New("mcp: initialize rejected")
)

// Retry reasons passed to Config.OnRetry.
const (
	RetryRefresh   = "token_refresh"
	RetryRateLimit = "rate_limit"
)

type Config struct {
	URL             string
	TokenURL        string
	ClientID        string
	AccessToken     string
	RefreshToken    string
	CallTimeout     time.Duration
	ProtocolVersion string
	ClientName      string
	ClientVersion   string

	HTTPClient *http.Client
	Logger     *log.Logger
	// Sleep waits out a rate limit. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called once for every automatic retry.
	OnRetry func(reason string)
}

// Result is the outcome of one tool invocation. Failures are carried as
// {"error": ...} JSON content with IsError set, never as Go errors.
type Result struct {
	Content string
	IsError bool
}

// Client owns one MCP session. It is not safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *log.Logger

	token         string
	refreshToken  string
	sessionID     string
	refreshFailed bool
	nextID        atomic.Int64
}

func New(cfg Config) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = DefaultProtocolVersion
	}
	if cfg.ClientName == "" {
		cfg.ClientName = DefaultClientName
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = DefaultClientVersion
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	c := &Client{
		cfg:          cfg,
		http:         cfg.HTTPClient,
		logger:       cfg.Logger,
		token:        cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

// SessionID returns the backend-assigned session, empty before Initialize.
func (c *Client) SessionID() string { return c.sessionID }

// Initialize performs the handshake and stores the session id. A 401 is
// answered with one token refresh.
func (c *Client) Initialize(ctx context.Context) error {
	return c.initialize(ctx, true)
}

// initialize is the handshake; allowRefresh is false when the caller has
// already spent the refresh.
func (c *Client) initialize(ctx context.Context, allowRefresh bool) error {
	req := newRequest(c.nextID.Add(1), "initialize", map[string]any{
		"protocolVersion": c.cfg.ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    c.cfg.ClientName,
			"version": c.cfg.ClientVersion,
		},
	})

	resp, err := c.post(ctx, req)
	if err != nil {
		return fmt.Errorf("mcp initialize: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized && allowRefresh && c.refreshToken != "" {
		drain(resp)
		if !c.refresh(ctx) {
			return fmt.Errorf("mcp initialize: %w", ErrUnauthorized)
		}
		c.retried(RetryRefresh)
		if resp, err = c.post(ctx, req); err != nil {
			return fmt.Errorf("mcp initialize: %w", err)
		}
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if resp, err = c.waitAndRetry(ctx, resp, req, "initialize"); err != nil {
			return fmt.Errorf("mcp initialize: %w", err)
		}
	}
	defer drain(resp)
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("mcp initialize: %w", ErrUnauthorized)
	}
	if err := statusError(resp); err != nil {
		return fmt.Errorf("mcp initialize: %w", err)
	}
	rpc, err := decodeResponse(resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		return fmt.Errorf("mcp initialize: %w", err)
	}
	if rpc.Error != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, rpc.Error)
	}
	c.sessionID = resp.Header.Get(headerSessionID)

	if err := c.notify(ctx, "notifications/initialized"); err != nil {
		c.logger.Printf("warning: mcp initialized notification: %v", err)
	}
	return nil
}

// CallTool invokes a tool. Every failure, including transport errors, comes
// back as error content so it can be shown to the model like any tool output.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) Result {
	if args == nil {
		args = map[string]any{}
	}
	for attempt := 0; attempt < 2; attempt++ {
		req := newRequest(c.nextID.Add(1), "tools/call", map[string]any{
			"name":      name,
			"arguments": args,
		})
		resp, err := c.post(ctx, req)
		if err != nil {
			return errorResult(err.Error())
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			drain(resp)
			if c.refresh(ctx) && c.initialize(ctx, false) == nil {
				c.retried(RetryRefresh)
				continue
			}
			return errorResult("unauthorized, refresh failed")
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			if resp, err = c.waitAndRetry(ctx, resp, req, name); err != nil {
				return errorResult(err.Error())
			}
		}
		return c.readToolResult(resp)
	}
	return errorResult("tool call failed after token refresh")
}

func (c *Client) readToolResult(resp *http.Response) Result {
	defer drain(resp)
	if err := statusError(resp); err != nil {
		return errorResult(err.Error())
	}
	rpc, err := decodeResponse(resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		return errorResult(err.Error())
	}
	if rpc.Error != nil {
		payload, _ := json.Marshal(map[string]any{"error": rpc.Error})
		return Result{Content: string(payload), IsError: true}
	}
	isError := gjson.GetBytes(rpc.Result, "isError").Bool()
	if !gjson.GetBytes(rpc.Result, "content.0").Exists() {
		return Result{Content: "{}", IsError: isError}
	}
	text := gjson.GetBytes(rpc.Result, "content.0.text")
	return Result{Content: text.String(), IsError: isError}
}

func (c *Client) waitAndRetry(ctx context.Context, resp *http.Response, req *Request, label string) (*http.Response, error) {
	wait := retryAfter(resp.Header.Get(headerRetryAfter))
	drain(resp)
	c.logger.Printf("warning: rate limited on %s, waiting %s", label, wait)
	if err := c.cfg.Sleep(ctx, wait); err != nil {
		return nil, err
	}
	c.retried(RetryRateLimit)
	req.ID = ptr(c.nextID.Add(1))
	return c.post(ctx, req)
}

func (c *Client) post(ctx context.Context, req *Request) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", req.Method, err)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("building %s request: %w", req.Method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.sessionID != "" {
		httpReq.Header.Set(headerSessionID, c.sessionID)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *Client) notify(ctx context.Context, method string) error {
	resp, err := c.post(ctx, newNotification(method))
	if err != nil {
		return err
	}
	defer drain(resp)
	return statusError(resp)
}

func (c *Client) retried(reason string) {
	if c.cfg.OnRetry != nil {
		c.cfg.OnRetry(reason)
	}
}

func errorResult(msg string) Result {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return Result{Content: string(payload), IsError: true}
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(bytes.TrimSpace(snippet)) == 0 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
}

// cancelBody releases the per-call timeout once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func ptr[T any](v T) *T { return &v }
