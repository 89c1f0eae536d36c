package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/realcheck/studio-backend/internal/domain"
)

func init() { gin.SetMode(gin.TestMode) }

//
// Fakes
//

type fakeAuthSvc struct {
	registerUser *domain.User
	registerErr  error
	loginToken   string
	loginErr     error
	profileErr   error
}

func (f *fakeAuthSvc) Register(context.Context, string, string) (*domain.User, error) {
	return f.registerUser, f.registerErr
}
func (f *fakeAuthSvc) Login(context.Context, string, string) (string, error) {
	return f.loginToken, f.loginErr
}
func (f *fakeAuthSvc) UpdateProfile(context.Context, string, string, string, string) error {
	return f.profileErr
}

type fakeChatSvc struct {
	chat     *domain.Chat
	chats    []domain.Chat
	total    int64
	messages []domain.Message
	err      error
}

func (f *fakeChatSvc) Create(context.Context, string) (*domain.Chat, error) {
	return f.chat, f.err
}
func (f *fakeChatSvc) List(context.Context, string) ([]domain.Chat, error) {
	return f.chats, f.err
}
func (f *fakeChatSvc) ListPage(context.Context, string, int, int) ([]domain.Chat, int64, error) {
	return f.chats, f.total, f.err
}
func (f *fakeChatSvc) Get(context.Context, string, string) (*domain.Chat, []domain.Message, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.chat, f.messages, nil
}
func (f *fakeChatSvc) Delete(context.Context, string, string) error { return f.err }

type fakeTurnSvc struct {
	reply     string
	fragments []string
	err       error

	gotPrompt string
	gotModel  string
}

func (f *fakeTurnSvc) Send(_ context.Context, _ *domain.User, _ string, prompt, uiModel string) (string, error) {
	f.gotPrompt, f.gotModel = prompt, uiModel
	return f.reply, f.err
}

func (f *fakeTurnSvc) Stream(_ context.Context, _ *domain.User, _ string, prompt, uiModel string, emit func(string) error) error {
	f.gotPrompt, f.gotModel = prompt, uiModel
	if f.err != nil {
		return f.err
	}
	for _, fr := range f.fragments {
		if err := emit(fr); err != nil {
			return nil
		}
	}
	return nil
}

type fakeBillingSvc struct {
	url        string
	err        error
	webhookErr error
}

func (f *fakeBillingSvc) Checkout(context.Context, string) (string, error) { return f.url, f.err }
func (f *fakeBillingSvc) HandleWebhook(context.Context, []byte, string) error {
	return f.webhookErr
}

//
// Router setup
//

type testServices struct {
	auth    *fakeAuthSvc
	chat    *fakeChatSvc
	turn    *fakeTurnSvc
	billing *fakeBillingSvc
}

// newTestRouter wires the handlers onto a bare engine. When user is non-nil
// every request runs as that identity, mimicking a passed session guard.
func newTestRouter(svcs testServices, user *domain.User) *gin.Engine {
	if svcs.auth == nil {
		svcs.auth = &fakeAuthSvc{}
	}
	if svcs.chat == nil {
		svcs.chat = &fakeChatSvc{}
	}
	if svcs.turn == nil {
		svcs.turn = &fakeTurnSvc{}
	}
	if svcs.billing == nil {
		svcs.billing = &fakeBillingSvc{}
	}

	r := gin.New()
	if user != nil {
		r.Use(func(c *gin.Context) {
			c.Set("userID", user.ID)
			c.Set("user", user)
		})
	}

	h := New(svcs.auth, svcs.chat, svcs.turn, svcs.billing)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.PUT("/profile", h.UpdateProfile)
	r.POST("/chats", h.CreateChat)
	r.GET("/chats", h.ListChats)
	r.GET("/chats/:id", h.GetChat)
	r.DELETE("/chats/:id", h.DeleteChat)
	r.POST("/chats/:id/messages", h.SendMessage)
	r.POST("/chats/:id/stream", h.StreamMessage)
	r.POST("/billing/checkout", h.Checkout)
	r.POST("/billing/webhook", h.Webhook)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

func testUser() *domain.User {
	return &domain.User{ID: "u1", Email: "u1@example.com", SubscriptionStatus: domain.SubscriptionNone}
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}
