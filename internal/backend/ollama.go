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
// OLLAMA CONSTANTS
// =============================================================================

// DefaultOllamaURL is the local Ollama endpoint.
// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6
// resolution issues on Windows.
const DefaultOllamaURL = "http://127.0.0.1:11434"

// =============================================================================
// OLLAMA ADAPTER
// =============================================================================

// OllamaAdapter streams completions from a local Ollama server. Ollama
// takes a single flattened prompt rather than structured messages, and
// needs no credential.
type OllamaAdapter struct {
	baseURL    string
	httpClient *http.Client
}

// NewOllamaAdapter creates an adapter for the given base URL. An empty
// URL selects the local default.
func NewOllamaAdapter(baseURL string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: streamingClient,
	}
}

// Name identifies the adapter in errors and logs.
func (a *OllamaAdapter) Name() string {
	return "ollama"
}

// ollamaRequest is the /api/generate request body.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaChunk is a single NDJSON line of the streaming response.
type ollamaChunk struct {
	Response string `json:"response"`
	Error    string `json:"error"`
	Done     bool   `json:"done"`
}

// Stream opens a streaming generation and returns its fragments.
func (a *OllamaAdapter) Stream(ctx context.Context, req Request) (*Stream, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
	})
	if err != nil {
		return nil, BackendError("failed to marshal Ollama request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, TransportError("failed to create Ollama request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	logRequest(httpReq)
	start := time.Now()
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, TransportError("Ollama is not reachable at "+a.baseURL, err)
	}
	logResponse(resp, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, BackendError("Ollama request rejected ("+resp.Status+"): "+errorMessage(errBody), nil)
	}

	reader := bufio.NewReader(resp.Body)
	done := false
	recv := func() (string, error) {
		for {
			if done {
				return "", io.EOF
			}

			line, err := reader.ReadBytes('\n')
			if err != nil {
				if err == io.EOF && len(bytes.TrimSpace(line)) == 0 {
					return "", io.EOF
				}
				if err != io.EOF {
					return "", TransportError("Ollama stream interrupted", err)
				}
			}

			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}

			var chunk ollamaChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				return "", BackendError("Ollama sent an unparseable payload", err)
			}
			if chunk.Error != "" {
				return "", BackendError("Ollama reported an error: "+chunk.Error, nil)
			}

			if chunk.Done {
				// The final line may still carry a trailing fragment.
				done = true
				if chunk.Response != "" {
					return chunk.Response, nil
				}
				return "", io.EOF
			}
			if chunk.Response != "" {
				return chunk.Response, nil
			}
		}
	}

	return NewStream(recv, resp.Body.Close), nil
}
