// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"io"
	"strings"
	"sync"
)

// =============================================================================
// STREAM
// =============================================================================

// Stream delivers reply fragments pulled one at a time. All adapters
// return this type, so callers consume every provider identically.
//
// Recv returns io.EOF when the reply is complete. Any other error is
// terminal: the stream delivers no further fragments after it, even when
// more data follows on the wire. Close releases the underlying
// connection and is safe to call more than once; callers should defer it
// as soon as they hold a Stream.
type Stream struct {
	recv func() (string, error)
	err  error

	closeOnce sync.Once
	closeFn   func() error
	closeErr  error
}

// NewStream builds a stream from a fragment source and a release
// function. recv returns io.EOF at the end of the reply; closeFn may be
// nil when there is nothing to release.
func NewStream(recv func() (string, error), closeFn func() error) *Stream {
	return &Stream{recv: recv, closeFn: closeFn}
}

// Recv returns the next reply fragment, or io.EOF when the reply is
// complete. The first error is latched: every later call returns it
// again without touching the underlying source.
func (s *Stream) Recv() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	fragment, err := s.recv()
	if err != nil {
		s.err = err
		return "", err
	}
	return fragment, nil
}

// Close releases the stream's resources. Idempotent.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if s.closeFn != nil {
			s.closeErr = s.closeFn()
		}
	})
	return s.closeErr
}

// Collect drains the stream, calling emit for each fragment as it
// arrives, and returns the assembled reply. The stream is closed on
// return. On error the fragments already delivered are returned alongside
// it, since the caller has already displayed them.
func (s *Stream) Collect(emit func(fragment string)) (string, error) {
	defer s.Close()

	var full strings.Builder
	for {
		fragment, err := s.Recv()
		if err == io.EOF {
			return full.String(), nil
		}
		if err != nil {
			return full.String(), err
		}
		if fragment == "" {
			continue
		}
		full.WriteString(fragment)
		if emit != nil {
			emit(fragment)
		}
	}
}
