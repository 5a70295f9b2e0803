// Package gateway talks to the OpenClaw agent gateway, an OpenAI-compatible
// chat completion endpoint fronting the actual agent runtime.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/openclaw/board/internal/config"
	"github.com/openclaw/board/internal/logger"
)

var (
	// ErrUpstream marks a gateway-reported failure (non-2xx or malformed payload).
	ErrUpstream = errors.New("gateway error")
	// ErrTimeout marks a deadline or cancellation hit while waiting on the gateway.
	ErrTimeout = errors.New("gateway timeout")
	// ErrUnreachable marks a network-level failure before any HTTP response.
	ErrUnreachable = errors.New("gateway unreachable")
)

// UpstreamError carries the HTTP status and response detail of a failed call.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway error: status %d: %s", e.StatusCode, e.Detail)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// Status is the health probe result reported to the UI.
type Status struct {
	Online bool   `json:"online"`
	URL    string `json:"url"`
	Error  string `json:"error,omitempty"`
}

// Client is the minimal gateway surface the lifecycle engine depends on;
// it is easy to mock in tests.
type Client interface {
	// Complete sends the ordered message list and returns the full reply.
	// In streaming mode each delta fragment is reported through onDelta as
	// it arrives. sessionKey isolates gateway-side conversation state.
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage, sessionKey string, stream bool, onDelta func(string)) (string, error)
	// Health probes the gateway health endpoint.
	Health(ctx context.Context) Status
}

// OpenClawClient implements Client against a configured gateway URL.
// It holds no per-call state and is safe for concurrent use.
type OpenClawClient struct {
	api     *openai.Client
	httpc   *http.Client
	baseURL string
	token   string
	model   string
}

func NewClient(cfg config.GatewayConfig) *OpenClawClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	apiCfg := openai.DefaultConfig(cfg.Token)
	apiCfg.BaseURL = base + "/v1"

	return &OpenClawClient{
		api:     openai.NewClientWithConfig(apiCfg),
		httpc:   &http.Client{Timeout: 5 * time.Second},
		baseURL: base,
		token:   cfg.Token,
		model:   cfg.Model,
	}
}

func (c *OpenClawClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessage, sessionKey string, stream bool, onDelta func(string)) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		User:     sessionKey,
		Stream:   stream,
	}

	if !stream {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", classify(err)
		}
		if len(resp.Choices) == 0 {
			return "", &UpstreamError{StatusCode: http.StatusOK, Detail: "response contained no choices"}
		}
		return resp.Choices[0].Message.Content, nil
	}

	s, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	defer s.Close()

	var full strings.Builder
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			// Partial output gathered so far is returned alongside the
			// error so the caller can preserve it.
			return full.String(), classify(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
}

func (c *OpenClawClient) Health(ctx context.Context) Status {
	status := Status{URL: c.baseURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		logger.L.Debug("gateway health probe failed", "error", err)
		status.Error = err.Error()
		return status
	}
	defer resp.Body.Close()

	status.Online = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !status.Online {
		status.Error = resp.Status
	}
	return status
}

// classify maps transport errors onto the package's error kinds so callers
// can write distinct diagnostics.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Detail: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode > 0 {
			return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Detail: reqErr.Error()}
		}
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
