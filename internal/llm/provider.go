// Package llm abstracts the external completion API behind a small
// capability interface so the turn pipeline can be exercised with a fake
// provider in tests. The one concrete implementation talks to OpenAI.
package llm

import (
	"context"
)

// User-facing model identifiers. The closed set the UI offers; anything
// else resolves to the default tier.
const (
	UIModelMini = "rc-mini"
	UIModelPro  = "rc-pro"
)

// modelMap resolves a user-facing model id to a backend model id.
var modelMap = map[string]string{
	UIModelMini: "gpt-4o-mini",
	UIModelPro:  "gpt-4o",
}

// ResolveModel maps a user-facing model identifier to the backend model the
// provider understands. An unrecognized identifier falls back to the default
// tier instead of failing the request.
func ResolveModel(uiModel string) string {
	if m, ok := modelMap[uiModel]; ok {
		return m
	}
	return modelMap[UIModelMini]
}

// IsPremium reports whether the user-facing model identifier requires an
// entitlement check before use.
func IsPremium(uiModel string) bool { return uiModel == UIModelPro }

// Message is one transcript entry sent as completion context.
type Message struct {
	Role    string
	Content string
}

// Stream is a forward-only, single-consumption sequence of text fragments.
// Recv blocks until the next fragment arrives and returns io.EOF when the
// upstream signals completion. A consumer that needs the full text must
// accumulate fragments itself; the stream is not restartable.
type Stream interface {
	Recv() (fragment string, err error)
	Close()
}

// CompletionProvider is the capability the turn pipeline depends on.
// Implementations receive the full ordered transcript, not just the latest
// message.
type CompletionProvider interface {
	// Complete returns the full assistant text in one call.
	Complete(ctx context.Context, backendModel string, transcript []Message) (string, error)

	// StreamCompletion requests incremental delivery and returns a lazy
	// fragment stream. The error return covers failures before the first
	// fragment; later failures surface from Stream.Recv.
	StreamCompletion(ctx context.Context, backendModel string, transcript []Message) (Stream, error)
}
