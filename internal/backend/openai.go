// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// =============================================================================
// OPENAI ADAPTER
// =============================================================================

// OpenAIAdapter streams chat completions from the OpenAI API.
type OpenAIAdapter struct {
	apiKey string
	client *openai.Client
}

// NewOpenAIAdapter creates an adapter for the given API key. An empty key
// is allowed at construction; Stream rejects it before any network
// contact so a missing credential fails fast.
func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return NewOpenAIAdapterWithBaseURL(apiKey, "")
}

// NewOpenAIAdapterWithBaseURL creates an adapter pointed at an alternate
// endpoint. Used by tests and OpenAI-compatible gateways.
func NewOpenAIAdapterWithBaseURL(apiKey, baseURL string) *OpenAIAdapter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		client: openai.NewClientWithConfig(config),
	}
}

// Name identifies the adapter in errors and logs.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Stream opens a streaming chat completion and returns its fragments.
func (a *OpenAIAdapter) Stream(ctx context.Context, req Request) (*Stream, error) {
	if a.apiKey == "" {
		return nil, CredentialError("OpenAI API key not set; set OPENAI_API_KEY")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	recv := func() (string, error) {
		// Skip role-only and otherwise empty deltas so callers only see
		// printable fragments.
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				return "", io.EOF
			}
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return "", err
				}
				return "", TransportError("OpenAI stream interrupted", err)
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if content := resp.Choices[0].Delta.Content; content != "" {
				return content, nil
			}
		}
	}

	return NewStream(recv, stream.Close), nil
}

// classifyOpenAIError maps client library errors onto the backend error
// taxonomy. A structured API response means the provider was reached, so
// it is not retried; anything else is a transport failure.
func classifyOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return BackendError("OpenAI request rejected: "+apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return BackendError("OpenAI request failed", err)
	}

	return TransportError("OpenAI connection failed", err)
}
