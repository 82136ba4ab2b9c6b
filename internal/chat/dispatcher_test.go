// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/registry"
	"github.com/jeranaias/parley/internal/storage"
)

// stubAdapter records the request it received and plays back a scripted
// stream.
type stubAdapter struct {
	name      string
	calls     int
	lastReq   backend.Request
	fragments []string
	terminal  error
	streamErr error
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Stream(ctx context.Context, req backend.Request) (*backend.Stream, error) {
	a.calls++
	a.lastReq = req
	if a.streamErr != nil {
		return nil, a.streamErr
	}
	terminal := a.terminal
	if terminal == nil {
		terminal = io.EOF
	}
	i := 0
	return backend.NewStream(func() (string, error) {
		if i >= len(a.fragments) {
			return "", terminal
		}
		f := a.fragments[i]
		i++
		return f, nil
	}, nil), nil
}

// memStore is an in-memory Store for dispatcher tests.
type memStore struct {
	entries []storage.Entry
	nextID  int64
}

func (s *memStore) AppendEntry(ctx context.Context, sessionID int64, role model.Role, content, modelName string) (int64, error) {
	s.nextID++
	s.entries = append(s.entries, storage.Entry{
		ID:        s.nextID,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Model:     modelName,
		CreatedAt: time.Now(),
	})
	return s.nextID, nil
}

func (s *memStore) RecentEntries(ctx context.Context, sessionID int64, since time.Time) ([]storage.Entry, error) {
	var out []storage.Entry
	for _, e := range s.entries {
		if e.SessionID == sessionID && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func testDispatcher(t *testing.T, openai, anthropic, ollama backend.Adapter) *Dispatcher {
	t.Helper()
	reg, err := registry.New([]registry.ModelConfig{
		{Name: "gpt-4", Backend: registry.KindOpenAI, MaxTokens: 8192},
		{Name: "opus", Backend: registry.KindAnthropic, MaxTokens: 100000, ModelID: "claude-3-opus-20240229"},
		{Name: "llama3", Backend: registry.KindOllama, MaxTokens: 8192},
		{Name: "tight", Backend: registry.KindOpenAI, MaxTokens: 5},
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	adapters := map[registry.Kind]backend.Adapter{}
	if openai != nil {
		adapters[registry.KindOpenAI] = openai
	}
	if anthropic != nil {
		adapters[registry.KindAnthropic] = anthropic
	}
	if ollama != nil {
		adapters[registry.KindOllama] = ollama
	}
	return New(reg, adapters)
}

func history(contents ...string) []model.Message {
	out := make([]model.Message, len(contents))
	for i, c := range contents {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		out[i] = model.Message{Role: role, Content: c}
	}
	return out
}

func TestRespondRoutesByBackendKind(t *testing.T) {
	openai := &stubAdapter{name: "openai", fragments: []string{"ok"}}
	anthropic := &stubAdapter{name: "anthropic", fragments: []string{"ok"}}
	ollama := &stubAdapter{name: "ollama", fragments: []string{"ok"}}
	d := testDispatcher(t, openai, anthropic, ollama)

	tests := []struct {
		modelName string
		adapter   *stubAdapter
		wireModel string
	}{
		{"gpt-4", openai, "gpt-4"},
		{"opus", anthropic, "claude-3-opus-20240229"},
		{"llama3", ollama, "llama3"},
	}

	for _, tc := range tests {
		stream, err := d.Respond(context.Background(), history("hello"), tc.modelName)
		if err != nil {
			t.Fatalf("Respond(%s): %v", tc.modelName, err)
		}
		stream.Close()

		if tc.adapter.calls != 1 {
			t.Errorf("%s adapter called %d times", tc.modelName, tc.adapter.calls)
		}
		if tc.adapter.lastReq.Model != tc.wireModel {
			t.Errorf("%s sent wire model %q, want %q", tc.modelName, tc.adapter.lastReq.Model, tc.wireModel)
		}
	}
}

func TestRespondFlattensForOllamaOnly(t *testing.T) {
	openai := &stubAdapter{name: "openai", fragments: []string{"ok"}}
	ollama := &stubAdapter{name: "ollama", fragments: []string{"ok"}}
	d := testDispatcher(t, openai, nil, ollama)

	h := history("tell me a story", "once upon a time")

	stream, err := d.Respond(context.Background(), h, "llama3")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	stream.Close()

	want := "user: tell me a story\nassistant: once upon a time\n"
	if ollama.lastReq.Prompt != want {
		t.Errorf("flattened prompt = %q, want %q", ollama.lastReq.Prompt, want)
	}
	if len(ollama.lastReq.Messages) != 0 {
		t.Error("ollama request should not carry structured messages")
	}

	stream, err = d.Respond(context.Background(), h, "gpt-4")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	stream.Close()

	if openai.lastReq.Prompt != "" {
		t.Error("openai request should not carry a flattened prompt")
	}
	if len(openai.lastReq.Messages) != 2 {
		t.Errorf("openai request carries %d messages, want 2", len(openai.lastReq.Messages))
	}
}

func TestRespondUnknownModel(t *testing.T) {
	openai := &stubAdapter{name: "openai"}
	d := testDispatcher(t, openai, nil, nil)

	_, err := d.Respond(context.Background(), history("hello"), "gpt-9")
	if !backend.IsConfig(err) {
		t.Fatalf("err = %v, want config error", err)
	}
	if openai.calls != 0 {
		t.Error("adapter must not be called for an unknown model")
	}
}

func TestRespondMissingAdapter(t *testing.T) {
	d := testDispatcher(t, nil, nil, nil)

	_, err := d.Respond(context.Background(), history("hello"), "gpt-4")
	if !backend.IsConfig(err) {
		t.Fatalf("err = %v, want config error", err)
	}
}

func TestRespondEmptyWindowFailsBeforeBackend(t *testing.T) {
	openai := &stubAdapter{name: "openai"}
	d := testDispatcher(t, openai, nil, nil)

	// The "tight" model's budget cannot fit this message.
	_, err := d.Respond(context.Background(), history(strings.Repeat("x", 100)), "tight")
	if !backend.IsEmptyHistory(err) {
		t.Fatalf("err = %v, want empty-history error", err)
	}
	if openai.calls != 0 {
		t.Error("adapter must not be called when nothing fits the budget")
	}

	_, err = d.Respond(context.Background(), nil, "gpt-4")
	if !backend.IsEmptyHistory(err) {
		t.Fatalf("err = %v, want empty-history error for no history", err)
	}
}

func TestRespondWindowsHistory(t *testing.T) {
	openai := &stubAdapter{name: "openai", fragments: []string{"ok"}}
	d := testDispatcher(t, openai, nil, nil)

	// Budget 5 admits only the newest short message.
	h := history(strings.Repeat("a", 100), "hi")
	stream, err := d.Respond(context.Background(), h, "tight")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	stream.Close()

	if len(openai.lastReq.Messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(openai.lastReq.Messages))
	}
	if openai.lastReq.Messages[0].Content != "hi" {
		t.Errorf("sent %q, want the newest message", openai.lastReq.Messages[0].Content)
	}
}

func TestTurnPersistsBothSides(t *testing.T) {
	openai := &stubAdapter{name: "openai", fragments: []string{"Hel", "lo!"}}
	d := testDispatcher(t, openai, nil, nil)
	store := &memStore{}

	var shown []string
	reply, err := d.Turn(context.Background(), store, 1, "gpt-4", "hi there", func(f string) {
		shown = append(shown, f)
	})
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if reply != "Hello!" {
		t.Errorf("reply = %q", reply)
	}
	if strings.Join(shown, "") != "Hello!" {
		t.Errorf("emit saw %q", strings.Join(shown, ""))
	}

	if len(store.entries) != 2 {
		t.Fatalf("stored %d entries, want 2", len(store.entries))
	}
	if store.entries[0].Role != model.RoleUser || store.entries[0].Content != "hi there" {
		t.Errorf("first entry = %+v, want the user message", store.entries[0])
	}
	if store.entries[1].Role != model.RoleAssistant || store.entries[1].Content != "Hello!" {
		t.Errorf("second entry = %+v, want the assistant reply", store.entries[1])
	}
	if store.entries[1].Model != "gpt-4" {
		t.Errorf("assistant entry model = %q", store.entries[1].Model)
	}
}

func TestTurnKeepsUserMessageWhenBackendFails(t *testing.T) {
	openai := &stubAdapter{name: "openai", streamErr: backend.TransportError("down", nil)}
	d := testDispatcher(t, openai, nil, nil)
	store := &memStore{}

	_, err := d.Turn(context.Background(), store, 1, "gpt-4", "hi", nil)
	if !backend.IsTransport(err) {
		t.Fatalf("err = %v, want transport error", err)
	}

	// The user message was persisted before dispatch and stays.
	if len(store.entries) != 1 {
		t.Fatalf("stored %d entries, want only the user message", len(store.entries))
	}
	if store.entries[0].Role != model.RoleUser {
		t.Errorf("entry role = %q", store.entries[0].Role)
	}
}

func TestTurnDoesNotPersistPartialReply(t *testing.T) {
	openai := &stubAdapter{
		name:      "openai",
		fragments: []string{"partial"},
		terminal:  backend.BackendError("rate limited", nil),
	}
	d := testDispatcher(t, openai, nil, nil)
	store := &memStore{}

	partial, err := d.Turn(context.Background(), store, 1, "gpt-4", "hi", nil)
	if !backend.IsBackend(err) {
		t.Fatalf("err = %v, want backend error", err)
	}
	// Shown fragments come back to the caller but are never stored.
	if partial != "partial" {
		t.Errorf("partial = %q", partial)
	}
	for _, e := range store.entries {
		if e.Role == model.RoleAssistant {
			t.Error("partial reply must not be persisted")
		}
	}
}

func TestTurnStripsAssistantPrefixFromFlattenedReply(t *testing.T) {
	ollama := &stubAdapter{name: "ollama", fragments: []string{"assistant: ", "hello"}}
	d := testDispatcher(t, nil, nil, ollama)
	store := &memStore{}

	reply, err := d.Turn(context.Background(), store, 1, "llama3", "hi", nil)
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if reply != "hello" {
		t.Errorf("reply = %q, want the echoed prefix stripped", reply)
	}
	if store.entries[1].Content != "hello" {
		t.Errorf("stored %q, want the cleaned reply", store.entries[1].Content)
	}
}

func TestTurnUsesRecentEntriesAsContext(t *testing.T) {
	openai := &stubAdapter{name: "openai", fragments: []string{"ok"}}
	d := testDispatcher(t, openai, nil, nil)
	store := &memStore{}

	// Seed an earlier exchange in the same session and one in another.
	store.AppendEntry(context.Background(), 1, model.RoleUser, "earlier question", "")
	store.AppendEntry(context.Background(), 1, model.RoleAssistant, "earlier answer", "gpt-4")
	store.AppendEntry(context.Background(), 2, model.RoleUser, "other session", "")

	_, err := d.Turn(context.Background(), store, 1, "gpt-4", "followup", nil)
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}

	sent := openai.lastReq.Messages
	if len(sent) != 3 {
		t.Fatalf("sent %d messages, want the session's 3", len(sent))
	}
	if sent[0].Content != "earlier question" || sent[2].Content != "followup" {
		t.Errorf("prompt order wrong: %q ... %q", sent[0].Content, sent[2].Content)
	}
}

func TestFlattenMessages(t *testing.T) {
	got := FlattenMessages([]model.Message{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
		{Role: model.RoleUser, Content: "how are you?"},
	})
	want := "user: hi\nassistant: hello\nuser: how are you?\n"
	if got != want {
		t.Errorf("FlattenMessages = %q, want %q", got, want)
	}

	if FlattenMessages(nil) != "" {
		t.Error("flattening no messages should yield an empty prompt")
	}
}
