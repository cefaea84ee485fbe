package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"
	"time"
)

const (
	headerSessionID  = "Mcp-Session-Id"
	headerRetryAfter = "Retry-After"

	defaultRetryAfter = 5 * time.Second
	maxResponseBytes  = 16 << 20
)

// decodeResponse reads a JSON-RPC response from either a plain JSON body or
// a streamable-HTTP event stream. For a stream, the first data event that
// carries a result or an error wins.
func decodeResponse(contentType string, body io.Reader) (*Response, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "text/event-stream" || bytes.HasPrefix(bytes.TrimSpace(data), []byte("event:")) ||
		bytes.HasPrefix(bytes.TrimSpace(data), []byte("data:")) {
		return decodeEventStream(data)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &resp, nil
}

func decodeEventStream(data []byte) (*Response, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxResponseBytes)
	var event strings.Builder
	flush := func() (*Response, bool) {
		defer event.Reset()
		if event.Len() == 0 {
			return nil, false
		}
		var resp Response
		if err := json.Unmarshal([]byte(event.String()), &resp); err != nil {
			return nil, false
		}
		if resp.Result == nil && resp.Error == nil {
			return nil, false
		}
		return &resp, true
	}
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if resp, ok := flush(); ok {
				return resp, nil
			}
			continue
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			if event.Len() > 0 {
				event.WriteByte('\n')
			}
			event.WriteString(strings.TrimPrefix(payload, " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading event stream: %w", err)
	}
	if resp, ok := flush(); ok {
		return resp, nil
	}
	return nil, fmt.Errorf("event stream carried no JSON-RPC response")
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(value string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
