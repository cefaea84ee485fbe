// Package lmstudio talks to the LM Studio management API to list, load and
// unload local models.
package lmstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultHost          = "localhost:1234"
	DefaultContextLength = 8192

	listTimeout   = 10 * time.Second
	loadTimeout   = 600 * time.Second
	unloadTimeout = 30 * time.Second
)

// Model is one entry of GET /api/v0/models.
type Model struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Publisher    string   `json:"publisher,omitempty"`
	Arch         string   `json:"arch,omitempty"`
	Quantization string   `json:"quantization,omitempty"`
	State        string   `json:"state"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// ToolUse reports whether LM Studio advertises native tool-use support.
func (m Model) ToolUse() bool {
	for _, c := range m.Capabilities {
		if c == "tool_use" {
			return true
		}
	}
	return false
}

type Client struct {
	// BaseURL is the management root, e.g. http://localhost:1234.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
	// ContextLength is requested on every load; zero means DefaultContextLength.
	ContextLength int
}

func NewClient(host string) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{BaseURL: "http://" + strings.TrimSuffix(host, "/")}
}

// InferenceURL is the OpenAI-compatible base for host.
func InferenceURL(host string) string {
	if host == "" {
		host = DefaultHost
	}
	return "http://" + strings.TrimSuffix(host, "/") + "/v1"
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// ListModels returns the LLMs known to LM Studio; embedding models are
// filtered out.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var body struct {
		Data []Model `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v0/models", nil, listTimeout, &body); err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	var out []Model
	for _, m := range body.Data {
		if m.Type == "llm" {
			out = append(out, m)
		}
	}
	return out, nil
}

// Instance is a loaded copy of a model.
type Instance struct {
	ID            string
	Model         string
	ContextLength int
}

type loadedModel struct {
	Key             string `json:"key"`
	LoadedInstances []struct {
		InstanceID string `json:"instance_id"`
		ID         string `json:"id"`
	} `json:"loaded_instances"`
}

func (c *Client) loaded(ctx context.Context) ([]Instance, error) {
	var body struct {
		Models []loadedModel `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/models", nil, listTimeout, &body); err != nil {
		return nil, err
	}
	var out []Instance
	for _, m := range body.Models {
		for _, inst := range m.LoadedInstances {
			id := inst.InstanceID
			if id == "" {
				id = inst.ID
			}
			if id != "" {
				out = append(out, Instance{ID: id, Model: m.Key})
			}
		}
	}
	return out, nil
}

// LoadModel unloads existing instances of model, which may have been
// loaded with a smaller context, and loads a fresh one.
func (c *Client) LoadModel(ctx context.Context, model string) (*Instance, error) {
	if instances, err := c.loaded(ctx); err == nil {
		for _, inst := range instances {
			if inst.Model == model {
				c.UnloadModel(ctx, inst.ID)
			}
		}
	}

	ctxLen := c.ContextLength
	if ctxLen <= 0 {
		ctxLen = DefaultContextLength
	}
	req := map[string]any{
		"model":            model,
		"context_length":   ctxLen,
		"flash_attention":  true,
		"echo_load_config": true,
	}
	var body struct {
		InstanceID string `json:"instance_id"`
		LoadConfig struct {
			ContextLength int `json:"context_length"`
		} `json:"load_config"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/models/load", req, loadTimeout, &body); err != nil {
		return nil, fmt.Errorf("loading %s: %w", model, err)
	}
	inst := &Instance{ID: body.InstanceID, Model: model, ContextLength: body.LoadConfig.ContextLength}
	if inst.ID == "" {
		inst.ID = model
	}
	if inst.ContextLength == 0 {
		inst.ContextLength = ctxLen
	}
	return inst, nil
}

// UnloadModel frees one instance. Failures are logged, never returned.
func (c *Client) UnloadModel(ctx context.Context, instanceID string) {
	err := c.do(ctx, http.MethodPost, "/api/v1/models/unload", map[string]string{"instance_id": instanceID}, unloadTimeout, nil)
	if err != nil {
		c.logger().Printf("warning: unloading %s: %v", instanceID, err)
	}
}

// UnloadAll frees every loaded instance and returns how many were unloaded.
func (c *Client) UnloadAll(ctx context.Context) int {
	instances, err := c.loaded(ctx)
	if err != nil {
		c.logger().Printf("warning: listing loaded models: %v", err)
		return 0
	}
	for _, inst := range instances {
		c.UnloadModel(ctx, inst.ID)
	}
	return len(instances)
}

// WaitReady polls the management port until it accepts TCP connections.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing base url: %w", err)
	}
	return waitForPort(ctx, u.Host, timeout)
}

func waitForPort(ctx context.Context, addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var d net.Dialer
	for time.Now().Before(deadline) {
		dialCtx, cancel := context.WithTimeout(ctx, time.Second)
		conn, err := d.DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("%s not ready after %s", addr, timeout)
}

func (c *Client) do(ctx context.Context, method, path string, in any, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(data)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
