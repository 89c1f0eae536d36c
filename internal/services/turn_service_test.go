package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/realcheck/studio-backend/internal/domain"
	"github.com/realcheck/studio-backend/internal/llm"
	"github.com/realcheck/studio-backend/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.User{}, &domain.Chat{}, &domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUserAndChat(t *testing.T, db *gorm.DB, subscription string) (*domain.User, *domain.Chat) {
	t.Helper()
	u := &domain.User{ID: "u1", Email: "u1@example.com", PasswordHash: "h", SubscriptionStatus: subscription}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	c := &domain.Chat{ID: "c1", UserID: u.ID, Title: "New chat"}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	return u, c
}

// fakeStream replays scripted fragments, then finalErr (io.EOF by default).
type fakeStream struct {
	fragments []string
	finalErr  error
	pos       int
	closed    bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos < len(s.fragments) {
		f := s.fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.finalErr != nil {
		return "", s.finalErr
	}
	return "", io.EOF
}

func (s *fakeStream) Close() { s.closed = true }

type fakeProvider struct {
	reply       string
	completeErr error

	stream  *fakeStream
	openErr error

	gotModel      string
	gotTranscript []llm.Message
}

func (p *fakeProvider) Complete(_ context.Context, model string, transcript []llm.Message) (string, error) {
	p.gotModel = model
	p.gotTranscript = transcript
	if p.completeErr != nil {
		return "", p.completeErr
	}
	return p.reply, nil
}

func (p *fakeProvider) StreamCompletion(_ context.Context, model string, transcript []llm.Message) (llm.Stream, error) {
	p.gotModel = model
	p.gotTranscript = transcript
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.stream, nil
}

func loadMessages(t *testing.T, db *gorm.DB, chatID string) []domain.Message {
	t.Helper()
	msgs, err := repo.ListMessages(db, chatID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	return msgs
}

func TestSend_PersistsTurnAndDerivesTitle(t *testing.T) {
	db := newServiceDB(t)
	u, c := seedUserAndChat(t, db, domain.SubscriptionNone)
	p := &fakeProvider{reply: "Hi! How can I help?"}
	svc := &TurnService{DB: db, Provider: p}

	reply, err := svc.Send(context.Background(), u, c.ID, "Hello", llm.UIModelMini)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "Hi! How can I help?" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if p.gotModel != "gpt-4o-mini" {
		t.Fatalf("unexpected backend model: %q", p.gotModel)
	}
	if len(p.gotTranscript) != 1 || p.gotTranscript[0].Role != domain.RoleUser || p.gotTranscript[0].Content != "Hello" {
		t.Fatalf("provider did not get the user message: %+v", p.gotTranscript)
	}

	msgs := loadMessages(t, db, c.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[0].Content != "Hello" || msgs[0].Idx != 0 {
		t.Fatalf("bad user message: %+v", msgs[0])
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].Content != reply || msgs[1].Idx != 1 {
		t.Fatalf("bad assistant message: %+v", msgs[1])
	}

	var got domain.Chat
	if err := db.First(&got, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("load chat: %v", err)
	}
	if got.Title != "Hello" {
		t.Fatalf("expected title from first user message, got %q", got.Title)
	}
}

func TestSend_TitleClippedToFiftyRunes(t *testing.T) {
	db := newServiceDB(t)
	u, c := seedUserAndChat(t, db, domain.SubscriptionNone)
	svc := &TurnService{DB: db, Provider: &fakeProvider{reply: "ok"}}

	prompt := strings.Repeat("é", 60)
	if _, err := svc.Send(context.Background(), u, c.ID, prompt, ""); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var got domain.Chat
	if err := db.First(&got, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("load chat: %v", err)
	}
	if got.Title != strings.Repeat("é", 50) {
		t.Fatalf("expected 50-rune title, got %d runes", len([]rune(got.Title)))
	}
}

func TestSend_ProviderFailureStoresFallback(t *testing.T) {
	db := newServiceDB(t)
	u, c := seedUserAndChat(t, db, domain.SubscriptionNone)
	svc := &TurnService{DB: db, Provider: &fakeProvider{completeErr: errors.New("upstream 500")}}

	reply, err := svc.Send(context.Background(), u, c.ID, "Hello", llm.UIModelMini)
	if err != nil {
		t.Fatalf("Send should absorb provider failure: %v", err)
	}
	if reply != fallbackReply {
		t.Fatalf("expected fallback reply, got %q", reply)
	}

	msgs := loadMessages(t, db, c.ID)
	if len(msgs) != 2 || msgs[1].Content != fallbackReply {
		t.Fatalf("fallback not persisted: %+v", msgs)
	}
}

func TestSend_RejectionsPersistNothing(t *testing.T) {
	db := newServiceDB(t)
	u, c := seedUserAndChat(t, db, domain.SubscriptionNone)
	ctx := context.Background()

	cases := []struct {
		name    string
		svc     *TurnService
		chatID  string
		prompt  string
		uiModel string
		want    error
	}{
		{"unknown chat", &TurnService{DB: db, Provider: &fakeProvider{reply: "x"}}, "ghost", "hi", "", ErrChatNotFound},
		{"empty prompt", &TurnService{DB: db, Provider: &fakeProvider{reply: "x"}}, c.ID, "   ", "", ErrEmptyPrompt},
		{"oversized prompt", &TurnService{DB: db, Provider: &fakeProvider{reply: "x"}, MaxPromptRunes: 3}, c.ID, "hello", "", ErrTooLong},
		{"premium without subscription", &TurnService{DB: db, Provider: &fakeProvider{reply: "x"}}, c.ID, "hi", llm.UIModelPro, ErrUpgradeRequired},
		{"no provider", &TurnService{DB: db}, c.ID, "hi", "", ErrProviderNotConfigured},
	}
	for _, tc := range cases {
		if _, err := tc.svc.Send(ctx, u, tc.chatID, tc.prompt, tc.uiModel); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if msgs := loadMessages(t, db, c.ID); len(msgs) != 0 {
		t.Fatalf("rejected turns must not persist messages, found %d", len(msgs))
	}
}

func TestSend_PremiumAllowedForSubscriberAndDevOverride(t *testing.T) {
	db := newServiceDB(t)
	u, c := seedUserAndChat(t, db, domain.SubscriptionActive)
	p := &fakeProvider{reply: "pro answer"}
	svc := &TurnService{DB: db, Provider: p}

	if _, err := svc.Send(context.Background(), u, c.ID, "hi", llm.UIModelPro); err != nil {
		t.Fatalf("subscriber should use premium: %v", err)
	}
	if p.gotModel != "gpt-4o" {
		t.Fatalf("expected premium backend model, got %q", p.gotModel)
	}

	// Dev override grants premium to a free account.
	free := &domain.User{ID: "u2", Email: "u2@example.com", PasswordHash: "h", SubscriptionStatus: domain.SubscriptionNone}
	if err := db.Create(free).Error; err != nil {
		t.Fatalf("seed free user: %v", err)
	}
	freeChat := &domain.Chat{ID: "c2", UserID: free.ID, Title: "New chat"}
	if err := db.Create(freeChat).Error; err != nil {
		t.Fatalf("seed free chat: %v", err)
	}
	devSvc := &TurnService{DB: db, Provider: p, DevAllPro: true}
	if _, err := devSvc.Send(context.Background(), free, freeChat.ID, "hi", llm.UIModelPro); err != nil {
		t.Fatalf("dev override should grant premium: %v", err)
	}
}

func TestStream_EmitsFragmentsAndPersistsWhole(t *testing.T) {
	db := newServiceDB(t)
	u, c := seedUserAndChat(t, db, domain.SubscriptionNone)
	st := &fakeStream{fragments: []string{"Hel", "lo ", "world"}}
	svc := &TurnService{DB: db, Provider: &fakeProvider{stream: st}}

	var emitted []string
	err := svc.Stream(context.Background(), u, c.ID, "greet me", "", func(f string) error {
		emitted = append(emitted, f)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if strings.Join(emitted, "") != "Hello world" {
		t.Fatalf("unexpected emitted text: %q", strings.Join(emitted, ""))
	}
	if !st.closed {
		t.Fatalf("stream was not closed")
	}

	msgs := loadMessages(t, db, c.ID)
	if len(msgs) != 2 || msgs[1].Content != "Hello world" {
		t.Fatalf("persisted assistant message mismatch: %+v", msgs)
	}
}

func TestStream_MidStreamFailureEmitsFallback(t *testing.T) {
	db := newServiceDB(t)
	u, c := seedUserAndChat(t, db, domain.SubscriptionNone)
	st := &fakeStream{fragments: []string{"partial "}, finalErr: errors.New("connection reset")}
	svc := &TurnService{DB: db, Provider: &fakeProvider{stream: st}}

	var emitted []string
	err := svc.Stream(context.Background(), u, c.ID, "hi", "", func(f string) error {
		emitted = append(emitted, f)
		return nil
	})
	if err != nil {
		t.Fatalf("mid-stream failure must not surface: %v", err)
	}
	if len(emitted) != 2 || emitted[1] != fallbackReply {
		t.Fatalf("expected fallback as last fragment, got %q", emitted)
	}

	msgs := loadMessages(t, db, c.ID)
	if len(msgs) != 2 || msgs[1].Content != fallbackReply {
		t.Fatalf("fallback not persisted: %+v", msgs)
	}
}

func TestStream_OpenFailureLeavesUserMessage(t *testing.T) {
	db := newServiceDB(t)
	u, c := seedUserAndChat(t, db, domain.SubscriptionNone)
	svc := &TurnService{DB: db, Provider: &fakeProvider{openErr: errors.New("dial tcp: refused")}}

	err := svc.Stream(context.Background(), u, c.ID, "hi", "", func(string) error { return nil })
	if err == nil {
		t.Fatalf("expected stream-open error to surface")
	}

	msgs := loadMessages(t, db, c.ID)
	if len(msgs) != 1 || msgs[0].Role != domain.RoleUser {
		t.Fatalf("expected only the user message, got %+v", msgs)
	}
}

func TestStream_ClientGoneKeepsAccumulatedReply(t *testing.T) {
	db := newServiceDB(t)
	u, c := seedUserAndChat(t, db, domain.SubscriptionNone)
	st := &fakeStream{fragments: []string{"one ", "two ", "three"}}
	svc := &TurnService{DB: db, Provider: &fakeProvider{stream: st}}

	calls := 0
	err := svc.Stream(context.Background(), u, c.ID, "hi", "", func(string) error {
		calls++
		if calls > 1 {
			return errors.New("broken pipe")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	// The full reply is still stored even though forwarding stopped early.
	msgs := loadMessages(t, db, c.ID)
	if len(msgs) != 2 || msgs[1].Content != "one two three" {
		t.Fatalf("expected full reply persisted, got %+v", msgs)
	}
}

func TestStream_CanceledContextStillPersistsReply(t *testing.T) {
	db := newServiceDB(t)
	u, c := seedUserAndChat(t, db, domain.SubscriptionNone)
	st := &fakeStream{fragments: []string{"partial "}, finalErr: errors.New("context canceled")}
	svc := &TurnService{DB: db, Provider: &fakeProvider{stream: st}}

	// A real disconnect cancels the request context and breaks the writer at
	// the same time. Persistence must not run under the canceled context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := svc.Stream(ctx, u, c.ID, "hi", "", func(string) error {
		cancel()
		return errors.New("broken pipe")
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	msgs := loadMessages(t, db, c.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected user and assistant messages after disconnect, got %d", len(msgs))
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].Content != "partial " {
		t.Fatalf("accumulated reply not persisted: %+v", msgs[1])
	}
}

func TestAppendWithRetry_RetriesAfterIndexConflict(t *testing.T) {
	db := newServiceDB(t)
	_, c := seedUserAndChat(t, db, domain.SubscriptionNone)

	orig := appendMessageFn
	t.Cleanup(func() { appendMessageFn = orig })

	// First attempt loses the index to a competing writer; the conflict must
	// be retried against the new count rather than surfaced.
	calls := 0
	appendMessageFn = func(ctx context.Context, tx *gorm.DB, chatID, role, content string) (*domain.Message, error) {
		calls++
		if calls == 1 {
			if _, err := repo.AppendMessage(ctx, tx, chatID, domain.RoleUser, "raced ahead"); err != nil {
				t.Fatalf("competing append: %v", err)
			}
			return nil, repo.ErrDuplicate
		}
		return repo.AppendMessage(ctx, tx, chatID, role, content)
	}

	svc := &TurnService{DB: db}
	m, err := svc.appendWithRetry(context.Background(), c.ID, domain.RoleAssistant, "after retry")
	if err != nil {
		t.Fatalf("appendWithRetry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", calls)
	}
	if m.Idx != 1 {
		t.Fatalf("expected retried message at index 1, got %d", m.Idx)
	}

	msgs := loadMessages(t, db, c.ID)
	if len(msgs) != 2 || msgs[0].Content != "raced ahead" || msgs[1].Content != "after retry" {
		t.Fatalf("unexpected transcript after retry: %+v", msgs)
	}
}
