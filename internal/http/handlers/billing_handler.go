// Billing HTTP handlers.
//
// This file exposes the two billing endpoints:
//   - POST /billing/checkout  (authenticated; returns a hosted checkout URL)
//   - POST /billing/webhook   (unauthenticated; provider callback, verified
//     by signature against the raw body)
//
// The webhook handler is the only writer of subscription status. It reads
// the raw request body because signature verification covers the exact
// bytes sent by the provider.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/realcheck/studio-backend/internal/services"
)

// CheckoutResponse carries the hosted checkout URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// Checkout godoc
// @ID          billingCheckout
// @Summary     Start a subscription checkout
// @Description Creates (if needed) the billing customer for the caller and returns a hosted checkout URL.
// @Tags        Billing
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.CheckoutResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Billing disabled"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /billing/checkout [post]
func (h *Handlers) Checkout(c *gin.Context) {
	u := currentUser(c)
	if u == nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	url, err := h.billingSvc.Checkout(c.Request.Context(), u.ID)
	if err != nil {
		if errors.Is(err, services.ErrBillingDisabled) {
			fail(c, http.StatusBadRequest, ErrCodeStripeDisabled, "billing is not configured")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, CheckoutResponse{URL: url})
}

// Webhook godoc
// @ID          billingWebhook
// @Summary     Billing provider callback
// @Description Applies subscription status changes from a signature-verified provider event.
// @Tags        Billing
// @Accept      json
// @Produce     plain
// @Param       Stripe-Signature  header  string  false  "Webhook signature"
// @Success     200  {string}  string  "ok"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad signature"
// @Router      /billing/webhook [post]
func (h *Handlers) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if err := h.billingSvc.HandleWebhook(c.Request.Context(), payload, sig); err != nil {
		if errors.Is(err, services.ErrBadWebhookSignature) {
			fail(c, http.StatusBadRequest, ErrCodeBadSignature, "bad signature")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	c.String(http.StatusOK, "ok")
}
