package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const refreshTimeout = 10 * time.Second

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// refresh exchanges the refresh token for a new access token. A failure is
// sticky: later calls return false without contacting the token endpoint.
func (c *Client) refresh(ctx context.Context) bool {
	if c.refreshFailed || c.refreshToken == "" {
		return false
	}
	tok, err := c.exchangeRefreshToken(ctx)
	if err != nil {
		c.logger.Printf("warning: token refresh failed: %v", err)
		c.refreshFailed = true
		return false
	}
	c.token = tok.AccessToken
	if tok.RefreshToken != "" {
		c.refreshToken = tok.RefreshToken
	}
	c.sessionID = ""
	c.logger.Printf("token refreshed")
	return true
}

func (c *Client) exchangeRefreshToken(ctx context.Context) (*tokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.refreshToken},
		"client_id":     {c.cfg.ClientID},
	}
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if err := statusError(resp); err != nil {
		return nil, err
	}
	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}
	return &tok, nil
}
