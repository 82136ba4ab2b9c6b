// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ANTHROPIC CONSTANTS
// =============================================================================

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"

	// anthropicMaxOutputTokens caps the reply length. This bounds output
	// only; the input window is enforced upstream by prompt trimming.
	anthropicMaxOutputTokens = 4096
)

// anthropicModels maps short aliases to versioned model identifiers.
// Identifiers already carrying the claude- prefix pass through untouched.
var anthropicModels = map[string]string{
	"opus":   "claude-3-opus-20240229",
	"sonnet": "claude-3-sonnet-20240229",
	"haiku":  "claude-3-haiku-20240307",
}

// ResolveAnthropicModel returns the versioned model identifier for a
// user-facing name.
func ResolveAnthropicModel(name string) (string, error) {
	if strings.HasPrefix(name, "claude-") {
		return name, nil
	}
	if id, ok := anthropicModels[name]; ok {
		return id, nil
	}
	return "", ConfigError("unknown Anthropic model: " + name)
}

// =============================================================================
// ANTHROPIC ADAPTER
// =============================================================================

// AnthropicAdapter streams replies from the Anthropic messages API.
type AnthropicAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicAdapter creates an adapter for the given API key.
func NewAnthropicAdapter(apiKey string) *AnthropicAdapter {
	return &AnthropicAdapter{
		apiKey:     apiKey,
		baseURL:    anthropicBaseURL,
		httpClient: streamingClient,
	}
}

// WithBaseURL points the adapter at an alternate endpoint. Used by tests.
func (a *AnthropicAdapter) WithBaseURL(baseURL string) *AnthropicAdapter {
	a.baseURL = strings.TrimRight(baseURL, "/")
	return a
}

// Name identifies the adapter in errors and logs.
func (a *AnthropicAdapter) Name() string {
	return "anthropic"
}

// anthropicRequest is the messages API request body.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicEvent is a single SSE data payload. Error arrives either as a
// bare string or as an object with a message field, depending on where in
// the stream it is raised.
type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
	Error json.RawMessage `json:"error"`
}

// Stream opens a streaming message request and returns its fragments.
func (a *AnthropicAdapter) Stream(ctx context.Context, req Request) (*Stream, error) {
	if a.apiKey == "" {
		return nil, CredentialError("Anthropic API key not set; set ANTHROPIC_API_KEY")
	}

	modelID, err := ResolveAnthropicModel(req.Model)
	if err != nil {
		return nil, err
	}

	messages := make([]anthropicMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, anthropicMessage{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     modelID,
		MaxTokens: anthropicMaxOutputTokens,
		Messages:  messages,
		Stream:    true,
	})
	if err != nil {
		return nil, BackendError("failed to marshal Anthropic request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, TransportError("failed to create Anthropic request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Api-Key", a.apiKey)
	httpReq.Header.Set("Anthropic-Version", anthropicVersion)

	logRequest(httpReq)
	start := time.Now()
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, TransportError("Anthropic connection failed", err)
	}
	logResponse(resp, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, BackendError("Anthropic request rejected ("+resp.Status+"): "+errorMessage(errBody), nil)
	}

	reader := bufio.NewReader(resp.Body)
	recv := func() (string, error) {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					return "", io.EOF
				}
				return "", TransportError("Anthropic stream interrupted", err)
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}

			var event anthropicEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return "", BackendError("Anthropic sent an unparseable payload", err)
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta.Text != "" {
					return event.Delta.Text, nil
				}
			case "error":
				return "", BackendError("Anthropic reported an error: "+errorMessage(event.Error), nil)
			case "message_stop":
				return "", io.EOF
			default:
				// message_start, content_block_start, ping, and friends
				// carry no text.
			}
		}
	}

	return NewStream(recv, resp.Body.Close), nil
}

// errorMessage extracts a human-readable message from an Anthropic error
// payload, which may be a bare string, an error object, or arbitrary
// bytes from a non-200 body.
func errorMessage(raw []byte) string {
	if len(raw) == 0 {
		return "unknown error"
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error.Message != "" {
			return obj.Error.Message
		}
	}

	return strings.TrimSpace(string(raw))
}
