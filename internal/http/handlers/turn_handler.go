// Turn HTTP handlers.
//
// This file exposes the two endpoints that run a chat turn:
//   - POST /chats/{id}/messages  (request/response: full assistant text)
//   - POST /chats/{id}/stream    (incremental: assistant text as a byte stream)
//
// The streaming endpoint writes fragments to the response body as they
// arrive from the provider and flushes after each one, so the caller sees
// the first fragment before the full answer is known. Failure mapping is
// shared: 404 for missing/not-owned chats, 400 for empty or over-length
// input (distinct codes), 402 for entitlement denial (distinct so the UI can
// show an upgrade prompt), 503 when no provider credential is configured.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/realcheck/studio-backend/internal/services"
)

// TurnRequest is the JSON payload for both turn endpoints.
type TurnRequest struct {
	// Content is the user message. It must be non-empty text.
	Content string `json:"content" binding:"required,min=1" example:"Hello"`
	// Model is the user-facing model id; unknown values fall back to the
	// default tier.
	Model string `json:"model" example:"rc-mini"`
}

// TurnResponse is the JSON envelope of the non-streaming turn endpoint.
type TurnResponse struct {
	// Content is the full assistant reply.
	Content string `json:"content"`
}

// failTurn maps service-level turn errors to HTTP results.
func failTurn(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrChatNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
	case errors.Is(err, services.ErrEmptyPrompt):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
	case errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeTooLong, "content too long")
	case errors.Is(err, services.ErrUpgradeRequired):
		fail(c, http.StatusPaymentRequired, ErrCodeUpgradeRequired, "this model requires an active subscription")
	case errors.Is(err, services.ErrProviderNotConfigured):
		fail(c, http.StatusServiceUnavailable, ErrCodeModelUnavailable, "model service not configured")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, err.Error())
	}
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Run a turn (non-streaming)
// @Description Appends the user message, generates the assistant reply over the full transcript, and returns it in one response.
// @Tags        Turns
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                true  "Chat ID (UUID)"  format(uuid)
// @Param       body  body  handlers.TurnRequest  true  "Turn payload"
// @Success     200  {object}  handlers.TurnResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     402  {object}  handlers.ErrorResponse  "Upgrade required"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Model service not configured"
// @Router      /chats/{id}/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	u := currentUser(c)
	if u == nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	chatID := c.Param("id")
	if _, err := uuid.Parse(chatID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return
	}

	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	content, err := h.turnSvc.Send(c.Request.Context(), u, chatID, req.Content, req.Model)
	if err != nil {
		failTurn(c, err)
		return
	}
	ok(c, http.StatusOK, TurnResponse{Content: content})
}

// StreamMessage godoc
// @ID          streamMessage
// @Summary     Run a turn (streaming)
// @Description Appends the user message and streams the assistant reply token by token as a plain-text body.
// @Tags        Turns
// @Accept      json
// @Produce     plain
// @Security    BearerAuth
// @Param       id    path  string                true  "Chat ID (UUID)"  format(uuid)
// @Param       body  body  handlers.TurnRequest  true  "Turn payload"
// @Success     200  {string}  string  "Assistant text fragments"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     402  {object}  handlers.ErrorResponse  "Upgrade required"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Model service not configured"
// @Router      /chats/{id}/stream [post]
func (h *Handlers) StreamMessage(c *gin.Context) {
	u := currentUser(c)
	if u == nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	chatID := c.Param("id")
	if _, err := uuid.Parse(chatID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return
	}

	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	// Headers must be in place before the first fragment commits the
	// response; after that point only the body can convey failure.
	wroteHeader := false
	emit := func(fragment string) error {
		if !wroteHeader {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Status(http.StatusOK)
			wroteHeader = true
		}
		if _, err := c.Writer.WriteString(fragment); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	if err := h.turnSvc.Stream(c.Request.Context(), u, chatID, req.Content, req.Model, emit); err != nil {
		failTurn(c, err)
	}
}
