package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/realcheck/studio-backend/internal/domain"
	"github.com/realcheck/studio-backend/internal/services"
)

func TestCreateChat_Created(t *testing.T) {
	chat := &domain.Chat{ID: chatID, UserID: "u1", Title: "New chat"}
	r := newTestRouter(testServices{chat: &fakeChatSvc{chat: chat}}, testUser())

	w := doJSON(t, r, http.MethodPost, "/chats", "")
	assertStatus(t, w, http.StatusCreated)

	var got domain.Chat
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != chatID || got.Title != "New chat" {
		t.Fatalf("unexpected chat: %+v", got)
	}
}

func TestListChats_PaginationEnvelope(t *testing.T) {
	chats := []domain.Chat{{ID: "a", UserID: "u1", Title: "t1"}, {ID: "b", UserID: "u1", Title: "t2"}}
	r := newTestRouter(testServices{chat: &fakeChatSvc{chats: chats, total: 42}}, testUser())

	w := doJSON(t, r, http.MethodGet, "/chats?page=2&page_size=2", "")
	assertStatus(t, w, http.StatusOK)

	var resp ListChatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(resp.Chats))
	}
	p := resp.Pagination
	if p.Page != 2 || p.PageSize != 2 || p.Total != 42 || p.TotalPages != 21 || !p.HasNext {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}

func TestGetChat_WithTranscript(t *testing.T) {
	chat := &domain.Chat{ID: chatID, UserID: "u1", Title: "Hello"}
	msgs := []domain.Message{
		{ID: "m1", ChatID: chatID, Role: domain.RoleUser, Content: "Hello", Idx: 0},
		{ID: "m2", ChatID: chatID, Role: domain.RoleAssistant, Content: "Hi!", Idx: 1},
	}
	r := newTestRouter(testServices{chat: &fakeChatSvc{chat: chat, messages: msgs}}, testUser())

	w := doJSON(t, r, http.MethodGet, "/chats/"+chatID, "")
	assertStatus(t, w, http.StatusOK)

	var resp GetChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Chat.ID != chatID || len(resp.Messages) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetChat_NotFoundAndBadID(t *testing.T) {
	r := newTestRouter(testServices{chat: &fakeChatSvc{err: services.ErrChatNotFound}}, testUser())

	w := doJSON(t, r, http.MethodGet, "/chats/"+chatID, "")
	assertStatus(t, w, http.StatusNotFound)

	w = doJSON(t, r, http.MethodGet, "/chats/nope", "")
	assertStatus(t, w, http.StatusBadRequest)
}

func TestDeleteChat(t *testing.T) {
	r := newTestRouter(testServices{}, testUser())
	w := doJSON(t, r, http.MethodDelete, "/chats/"+chatID, "")
	assertStatus(t, w, http.StatusNoContent)

	r = newTestRouter(testServices{chat: &fakeChatSvc{err: services.ErrChatNotFound}}, testUser())
	w = doJSON(t, r, http.MethodDelete, "/chats/"+chatID, "")
	assertStatus(t, w, http.StatusNotFound)
}
