// Package services – TurnService
//
// This file implements TurnService, the application-level component that
// owns a chat turn: one user message in, one assistant message out. It
// validates input, checks chat ownership and model entitlement, appends the
// user message to the transcript, forwards the full transcript to the
// completion provider, and persists the assistant reply together with a
// derived chat title.
//
// The streaming variant forwards fragments to the caller as they arrive and
// recovers from mid-stream provider failures by emitting a fixed, user-safe
// fallback message. Once the response stream is open the caller always sees
// a cleanly closed body; stored-transcript persistence after that point is
// best effort and failures are logged, never re-surfaced.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// chat/user identifiers and the requested model.
package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/realcheck/studio-backend/internal/domain"
	"github.com/realcheck/studio-backend/internal/llm"
	"github.com/realcheck/studio-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// fallbackReply is emitted (and persisted) when the provider fails
	// after the response stream has been committed.
	fallbackReply = "Sorry, I encountered an error while processing your request. Please try again."

	// titleMaxRunes caps the derived chat title.
	titleMaxRunes = 50
)

// TurnService coordinates message persistence and provider completions.
type TurnService struct {
	DB       *gorm.DB
	Provider llm.CompletionProvider

	// DevAllPro grants premium entitlement to everyone. Read once from
	// configuration at construction time; intended for development only.
	DevAllPro bool

	// MaxPromptRunes bounds the user prompt length; zero disables the check.
	MaxPromptRunes int
}

// Send runs a complete non-streaming turn and returns the assistant text.
// On provider failure after the user message was stored, the fixed fallback
// reply is persisted and returned in place of real output.
func (s *TurnService) Send(ctx context.Context, user *domain.User, chatID, prompt, uiModel string) (string, error) {
	tr := otel.Tracer("services/TurnService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", user.ID),
			attribute.String("model.ui", uiModel),
		),
	)
	defer span.End()

	transcript, err := s.beginTurn(ctx, user, chatID, prompt, uiModel)
	if err != nil {
		return "", err
	}

	reply, err := s.Provider.Complete(ctx, llm.ResolveModel(uiModel), transcript)
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("completion failed, storing fallback reply")
		reply = fallbackReply
	}

	s.finishTurn(ctx, chatID, transcript, reply)
	return reply, nil
}

// Stream runs a streaming turn. Each fragment is handed to emit as soon as
// it arrives; emit returning an error means the caller is gone, after which
// forwarding stops but the turn is still finished so the stored transcript
// stays consistent.
//
// Failures before the first byte is committed (bad input, missing chat,
// entitlement, provider unconfigured, stream setup) are returned as errors so
// the transport can map them to proper statuses. Failures after that point
// are absorbed into the fallback reply and Stream returns nil.
func (s *TurnService) Stream(ctx context.Context, user *domain.User, chatID, prompt, uiModel string, emit func(fragment string) error) error {
	tr := otel.Tracer("services/TurnService")
	ctx, span := tr.Start(ctx, "Stream",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", user.ID),
			attribute.String("model.ui", uiModel),
		),
	)
	defer span.End()

	transcript, err := s.beginTurn(ctx, user, chatID, prompt, uiModel)
	if err != nil {
		return err
	}

	stream, err := s.Provider.StreamCompletion(ctx, llm.ResolveModel(uiModel), transcript)
	if err != nil {
		// Nothing was written yet; undo nothing (the user message stays,
		// matching the non-streaming surface) and let the transport report it.
		return err
	}
	defer stream.Close()

	var full strings.Builder
	forwarding := true
	for {
		fragment, rerr := stream.Recv()
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			if ctx.Err() != nil || !forwarding {
				// Caller disconnected; keep whatever real content arrived.
				break
			}
			// Provider died mid-stream: the caller may already hold partial
			// real content, which is not retracted. Append the apology and
			// persist it as the assistant message.
			log.Error().Err(rerr).Str("chat_id", chatID).Msg("provider stream failed, emitting fallback")
			_ = emit(fallbackReply)
			s.finishTurn(ctx, chatID, transcript, fallbackReply)
			return nil
		}
		full.WriteString(fragment)
		if forwarding {
			if err := emit(fragment); err != nil {
				forwarding = false
			}
		}
	}

	s.finishTurn(ctx, chatID, transcript, full.String())
	return nil
}

// beginTurn validates the request, persists the user message, and returns
// the full ordered transcript including it. No state is persisted on any
// rejection path.
func (s *TurnService) beginTurn(ctx context.Context, user *domain.User, chatID, prompt, uiModel string) ([]llm.Message, error) {
	if _, err := repo.GetChat(ctx, s.DB, chatID, user.ID); err != nil {
		return nil, ErrChatNotFound
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	if llm.IsPremium(uiModel) && !s.entitled(user) {
		return nil, ErrUpgradeRequired
	}
	if s.Provider == nil {
		return nil, ErrProviderNotConfigured
	}

	if _, err := s.appendWithRetry(ctx, chatID, domain.RoleUser, prompt); err != nil {
		return nil, err
	}

	msgs, err := repo.ListMessages(s.DB.WithContext(ctx), chatID)
	if err != nil {
		return nil, err
	}
	transcript := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		transcript = append(transcript, llm.Message{Role: m.Role, Content: m.Content})
	}
	return transcript, nil
}

// finishTurn persists the assistant reply at the next index and re-derives
// the chat title from the first user message. The caller's response has
// already succeeded at this point, so failures are only logged. The request
// context may already be canceled when the client disconnected mid-stream,
// so persistence runs detached from its cancellation.
func (s *TurnService) finishTurn(ctx context.Context, chatID string, transcript []llm.Message, reply string) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.appendWithRetry(ctx, chatID, domain.RoleAssistant, reply); err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("persisting assistant message failed")
		return
	}
	title := deriveTitle(transcript)
	if err := repo.TouchChat(ctx, s.DB, chatID, &title); err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("touching chat failed")
	}
}

// appendMessageFn is a seam for tests that need to interleave a competing
// writer between the first append attempt and the retry.
var appendMessageFn = repo.AppendMessage

// appendWithRetry appends a message, retrying once when a concurrent append
// to the same chat stole the index.
func (s *TurnService) appendWithRetry(ctx context.Context, chatID, role, content string) (*domain.Message, error) {
	m, err := appendMessageFn(ctx, s.DB, chatID, role, content)
	if errors.Is(err, repo.ErrDuplicate) {
		m, err = appendMessageFn(ctx, s.DB, chatID, role, content)
	}
	return m, err
}

// entitled reports whether the user may use the premium tier.
func (s *TurnService) entitled(user *domain.User) bool {
	if s.DevAllPro {
		return true
	}
	return user.SubscriptionStatus == domain.SubscriptionActive
}

// deriveTitle returns the first user message's content clipped to
// titleMaxRunes, falling back to the placeholder when no user message
// exists. Applied after every successful turn, so the title always tracks
// the conversation opener.
func deriveTitle(transcript []llm.Message) string {
	for _, m := range transcript {
		if m.Role != domain.RoleUser {
			continue
		}
		if utf8.RuneCountInString(m.Content) > titleMaxRunes {
			return string([]rune(m.Content)[:titleMaxRunes])
		}
		if m.Content != "" {
			return m.Content
		}
	}
	return placeholderTitle
}
