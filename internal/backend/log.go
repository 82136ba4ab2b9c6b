// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"log"
	"net/http"
	"os"
	"time"
)

// =============================================================================
// REQUEST DIAGNOSTICS
// =============================================================================

// Debug enables request-level diagnostics on the standard logger. Off by
// default so streamed replies print cleanly; set PARLEY_DEBUG to turn it
// on.
var Debug = os.Getenv("PARLEY_DEBUG") != ""

// logRequest logs an outgoing API request.
// SECURITY: Does not log headers (may contain auth tokens) or body
// (may contain sensitive data).
func logRequest(req *http.Request) {
	if !Debug {
		return
	}
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs an API response with timing information.
// SECURITY: Does not log response body (may contain sensitive data).
func logResponse(resp *http.Response, duration time.Duration) {
	if !Debug {
		return
	}
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}
