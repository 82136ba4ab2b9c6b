// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// Error represents a failure raised by a backend adapter or the dispatch
// layer above it.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorKind categorizes backend errors for handling.
type ErrorKind int

const (
	// KindTransport covers network-level failures: connection refused,
	// reset, timeout. The only kind eligible for retry.
	KindTransport ErrorKind = iota

	// KindBackend covers structured error responses from a reachable
	// provider: rate limits, invalid requests, server errors.
	KindBackend

	// KindCredential means a required API key is missing.
	KindCredential

	// KindConfig means the request could never succeed as configured:
	// unknown model name, unsupported provider.
	KindConfig

	// KindEmptyHistory means the token budget left no messages to send.
	KindEmptyHistory
)

// Sentinel errors for easy checking.
var (
	ErrEmptyHistory = &Error{Kind: KindEmptyHistory, Message: "no conversation history fits within the model's token budget"}
)

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

// TransportError wraps a network-level failure.
func TransportError(message string, cause error) *Error {
	return &Error{Kind: KindTransport, Message: message, Cause: cause}
}

// BackendError wraps a structured error response from a provider.
func BackendError(message string, cause error) *Error {
	return &Error{Kind: KindBackend, Message: message, Cause: cause}
}

// CredentialError reports a missing API key.
func CredentialError(message string) *Error {
	return &Error{Kind: KindCredential, Message: message}
}

// ConfigError reports a request that can never succeed as configured.
func ConfigError(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// =============================================================================
// ERROR PREDICATES
// =============================================================================

func isKind(err error, kind ErrorKind) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool { return isKind(err, KindTransport) }

// IsBackend reports whether err is a structured provider error.
func IsBackend(err error) bool { return isKind(err, KindBackend) }

// IsCredential reports whether err is a missing-credential failure.
func IsCredential(err error) bool { return isKind(err, KindCredential) }

// IsConfig reports whether err is a configuration failure.
func IsConfig(err error) bool { return isKind(err, KindConfig) }

// IsEmptyHistory reports whether err means nothing fit the token budget.
func IsEmptyHistory(err error) bool { return isKind(err, KindEmptyHistory) }
